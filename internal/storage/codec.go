package storage

import (
	"encoding/json"
	"errors"

	"fsgeno/internal/model"
)

const (
	CurrentSchemaVersion = model.CurrentSchemaVersion
	CurrentCodecVersion  = model.CurrentCodecVersion
)

var ErrVersionMismatch = errors.New("record version mismatch")

func EncodeGenotype(record model.GenotypeRecord) ([]byte, error) {
	return json.Marshal(record)
}

func DecodeGenotype(data []byte) (model.GenotypeRecord, error) {
	var record model.GenotypeRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return model.GenotypeRecord{}, err
	}
	if err := checkVersion(record.VersionedRecord); err != nil {
		return model.GenotypeRecord{}, err
	}
	return record, nil
}

func EncodeLineage(records []model.LineageRecord) ([]byte, error) {
	return json.Marshal(records)
}

func DecodeLineage(data []byte) ([]model.LineageRecord, error) {
	var records []model.LineageRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, err
	}
	for _, record := range records {
		if err := checkVersion(record.VersionedRecord); err != nil {
			return nil, err
		}
	}
	return records, nil
}

func checkVersion(v model.VersionedRecord) error {
	if v.SchemaVersion != CurrentSchemaVersion || v.CodecVersion != CurrentCodecVersion {
		return ErrVersionMismatch
	}
	return nil
}
