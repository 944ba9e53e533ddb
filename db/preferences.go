package db

import (
	"errors"
	"fmt"
	"slices"
	"strconv"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"mod-updater/loader"
)

const (
	PrefGameVersion       = "mc-version"
	PrefLoader            = "loader"
	PrefCurseforgeSupport = "curseforge-support"
)

// PreferenceKeys lists every key the application reads.
var PreferenceKeys = []string{PrefGameVersion, PrefLoader, PrefCurseforgeSupport}

// ValidatePreference rejects unknown keys and malformed values.
func ValidatePreference(key, value string) error {
	if !slices.Contains(PreferenceKeys, key) {
		return fmt.Errorf("unknown preference %q", key)
	}
	switch key {
	case PrefLoader:
		if _, err := loader.Parse(value); err != nil {
			return err
		}
	case PrefCurseforgeSupport:
		if _, err := strconv.ParseBool(value); err != nil {
			return fmt.Errorf("%s must be true or false", key)
		}
	case PrefGameVersion:
		if value == "" {
			return fmt.Errorf("%s must not be empty", key)
		}
	}
	return nil
}

// Preferences reads and writes user settings.
type Preferences struct {
	DB *gorm.DB
}

// Get returns the stored value for key.
func (p Preferences) Get(key string) (string, bool, error) {
	var pref Preference
	err := p.DB.Where("`key` = ?", key).First(&pref).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to read preference %s: %w", key, err)
	}
	return pref.Value, true, nil
}

// Lookup is Get without the error, for config.ApplyPreferences.
func (p Preferences) Lookup(key string) (string, bool) {
	v, ok, err := p.Get(key)
	if err != nil {
		return "", false
	}
	return v, ok
}

// Set validates and stores value under key.
func (p Preferences) Set(key, value string) error {
	if key == PrefCurseforgeSupport {
		if b, err := strconv.ParseBool(value); err == nil {
			value = strconv.FormatBool(b)
		}
	}
	if key == PrefLoader {
		if l, err := loader.Parse(value); err == nil {
			value = l.String()
		}
	}
	if err := ValidatePreference(key, value); err != nil {
		return err
	}
	pref := Preference{Key: key, Value: value}
	err := p.DB.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&pref).Error
	if err != nil {
		return fmt.Errorf("failed to save preference %s: %w", key, err)
	}
	return nil
}

// All returns every stored preference keyed by name.
func (p Preferences) All() (map[string]string, error) {
	var prefs []Preference
	if err := p.DB.Order("`key`").Find(&prefs).Error; err != nil {
		return nil, fmt.Errorf("failed to list preferences: %w", err)
	}
	out := make(map[string]string, len(prefs))
	for _, pref := range prefs {
		out[pref.Key] = pref.Value
	}
	return out, nil
}

// RecordDownloads stores the outcome of a download batch.
func RecordDownloads(conn *gorm.DB, records []Download) error {
	if len(records) == 0 {
		return nil
	}
	if err := conn.Create(&records).Error; err != nil {
		return fmt.Errorf("failed to record downloads: %w", err)
	}
	return nil
}

// RecentDownloads returns up to limit records, newest first.
func RecentDownloads(conn *gorm.DB, limit int) ([]Download, error) {
	var records []Download
	if err := conn.Order("created_at DESC").Order("id DESC").Limit(limit).Find(&records).Error; err != nil {
		return nil, fmt.Errorf("failed to list downloads: %w", err)
	}
	return records, nil
}
