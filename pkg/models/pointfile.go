package models

import (
	"encoding/gob"
	"fmt"
	"os"
)

// PointFile is the serializable form of a point set.
type PointFile struct {
	Points []Location `json:"points"`
	Count  int64      `json:"count"`
}

// SavePoints saves a point set to a binary file.
func SavePoints(filename string, points []Location) error {
	data := PointFile{
		Points: points,
		Count:  int64(len(points)),
	}

	file, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer file.Close()

	encoder := gob.NewEncoder(file)
	if err := encoder.Encode(data); err != nil {
		return fmt.Errorf("failed to encode data: %w", err)
	}

	return nil
}

// LoadPoints loads a point set from a binary file.
func LoadPoints(filename string) ([]Location, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	var data PointFile
	decoder := gob.NewDecoder(file)
	if err := decoder.Decode(&data); err != nil {
		return nil, fmt.Errorf("failed to decode data: %w", err)
	}

	return data.Points, nil
}
