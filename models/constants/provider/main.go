package provider

import (
	"primerid/api/models/constants"
	"strings"
)

const (
	UnknownStorage constants.StorageProvider = ""
	GCS            constants.StorageProvider = "GCS"
	MINIO          constants.StorageProvider = "MINIO"

	UnknownDatabase constants.DatabaseProvider = ""
	ELASTICSEARCH   constants.DatabaseProvider = "ELASTICSEARCH"
	POSTGRES        constants.DatabaseProvider = "POSTGRES"
	MEMORY          constants.DatabaseProvider = "MEMORY"
)

func CastToStorageProvider(text string) constants.StorageProvider {
	switch strings.ToUpper(text) {
	case "GCS", "GOOGLE":
		return GCS
	case "MINIO", "S3":
		return MINIO
	default:
		return UnknownStorage
	}
}

func CastToDatabaseProvider(text string) constants.DatabaseProvider {
	switch strings.ToUpper(text) {
	case "ELASTICSEARCH", "ES":
		return ELASTICSEARCH
	case "POSTGRES", "POSTGRESQL":
		return POSTGRES
	case "MEMORY", "":
		return MEMORY
	default:
		return UnknownDatabase
	}
}
