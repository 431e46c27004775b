package generator

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// Dataset file names inside a snapshot directory.
const (
	AffiliatesFile   = "affiliates.json"
	CommissionsFile  = "commissions.json"
	PayoutsFile      = "payouts.json"
	AttributionsFile = "attributions.json"
)

// WriteDataset serializes the dataset into one JSON file per collection under dir.
func WriteDataset(dataset Dataset, dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	files := []struct {
		name string
		data any
	}{
		{AffiliatesFile, dataset.Affiliates},
		{CommissionsFile, dataset.Commissions},
		{PayoutsFile, dataset.Payouts},
		{AttributionsFile, dataset.Attributions},
	}
	for _, f := range files {
		if err := writeJSON(filepath.Join(dir, f.name), f.data); err != nil {
			return err
		}
	}
	return nil
}

// ReadDataset loads a directory written by WriteDataset. The attributions
// file is optional.
func ReadDataset(dir string) (Dataset, error) {
	var ds Dataset
	required := []struct {
		name string
		dst  any
	}{
		{AffiliatesFile, &ds.Affiliates},
		{CommissionsFile, &ds.Commissions},
		{PayoutsFile, &ds.Payouts},
	}
	for _, f := range required {
		if err := readJSON(filepath.Join(dir, f.name), f.dst); err != nil {
			return Dataset{}, err
		}
	}
	err := readJSON(filepath.Join(dir, AttributionsFile), &ds.Attributions)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Dataset{}, err
	}
	return ds, nil
}

func writeJSON(path string, data any) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer file.Close()

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(data); err != nil {
		return fmt.Errorf("encode json for %s: %w", path, err)
	}
	return nil
}

func readJSON(path string, dst any) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer file.Close()

	decoder := json.NewDecoder(file)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dst); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}
