package models

import "time"

type Config struct {
	Debug bool `yaml:"debug" envconfig:"PRIMERID_DEBUG"`

	Api struct {
		Url            string        `yaml:"url" envconfig:"PRIMERID_PUBLIC_URL"`
		Port           string        `yaml:"port" envconfig:"PRIMERID_API_INTERNAL_PORT" default:"8080"`
		Production     bool          `yaml:"production" envconfig:"PRIMERID_PRODUCTION"`
		ApiKey         string        `yaml:"apiKey" envconfig:"API_KEY"`
		LoginPassword  string        `yaml:"loginPassword" envconfig:"LOGIN_PASSWORD"`
		RequestTimeout time.Duration `yaml:"requestTimeout" envconfig:"PRIMERID_REQUEST_TIMEOUT" default:"30s"`
	} `yaml:"api"`

	Storage struct {
		Provider        string        `yaml:"provider" envconfig:"PRIMERID_STORAGE_PROVIDER" default:"GCS"`
		CredentialsFile string        `yaml:"credentialsFile" envconfig:"GOOGLE_APPLICATION_CREDENTIALS"`
		Endpoint        string        `yaml:"endpoint" envconfig:"PRIMERID_MINIO_ENDPOINT"`
		AccessKeyId     string        `yaml:"accessKeyId" envconfig:"PRIMERID_MINIO_ACCESS_KEY_ID"`
		SecretAccessKey string        `yaml:"secretAccessKey" envconfig:"PRIMERID_MINIO_SECRET_ACCESS_KEY"`
		UseSSL          bool          `yaml:"useSSL" envconfig:"PRIMERID_MINIO_USE_SSL" default:"true"`
		DevPrefix       string        `yaml:"devPrefix" envconfig:"PRIMERID_STORAGE_DEV_PREFIX" default:"dev/"`
		SignedUrlTtl    time.Duration `yaml:"signedUrlTtl" envconfig:"PRIMERID_SIGNED_URL_TTL" default:"24h"`

		Buckets struct {
			TCSDR    string `yaml:"tcsdr" envconfig:"PRIMERID_BUCKET_TCSDR" default:"tcs-dr"`
			OGV      string `yaml:"ogv" envconfig:"PRIMERID_BUCKET_OGV" default:"ogv-dating"`
			Splicing string `yaml:"splicing" envconfig:"PRIMERID_BUCKET_SPLICING" default:"hiv-splicing"`
		} `yaml:"buckets"`
	} `yaml:"storage"`

	Database struct {
		Provider    string `yaml:"provider" envconfig:"PRIMERID_DATABASE_PROVIDER" default:"MEMORY"`
		PostgresDsn string `yaml:"postgresDsn" envconfig:"DATABASE_URL"`
	} `yaml:"database"`

	Elasticsearch struct {
		Url         string `yaml:"url" envconfig:"PRIMERID_ES_URL"`
		Username    string `yaml:"username" envconfig:"PRIMERID_ES_USERNAME"`
		Password    string `yaml:"password" envconfig:"PRIMERID_ES_PASSWORD"`
		IndexPrefix string `yaml:"indexPrefix" envconfig:"PRIMERID_ES_INDEX_PREFIX" default:"primerid-"`
	} `yaml:"elasticsearch"`

	Services struct {
		ValidationUrl    string `yaml:"validationUrl" envconfig:"RUBY_API_SERVER"`
		DrCatalogUrl     string `yaml:"drCatalogUrl" envconfig:"PRIMERID_DR_PARAMS_URL"`
		CatalogCacheSize int    `yaml:"catalogCacheSize" envconfig:"PRIMERID_DR_PARAMS_CACHE_SIZE" default:"8"`
		MaxRetries       uint64 `yaml:"maxRetries" envconfig:"PRIMERID_SERVICES_MAX_RETRIES" default:"3"`
	} `yaml:"services"`

	Sanitation struct {
		Enabled bool   `yaml:"enabled" envconfig:"PRIMERID_SANITATION_ENABLED" default:"true"`
		At      string `yaml:"at" envconfig:"PRIMERID_SANITATION_AT" default:"04:00:00"`
	} `yaml:"sanitation"`
}
