package storage

// Config holds configuration for the storage provider and the seed exports
// written to it.
type Config struct {
	// Endpoint is the URL of the storage service.
	Endpoint string `mapstructure:"endpoint" default:"localhost:9000"`
	// AccessKey is the access key ID for authentication.
	AccessKey string `mapstructure:"access_key" default:"minioadmin"`
	// SecretKey is the secret access key for authentication.
	SecretKey string `mapstructure:"secret_key" default:"minioadmin"`
	// UseSSL indicates whether to use SSL/TLS for connections.
	UseSSL bool `mapstructure:"use_ssl" default:"false"`
	// Bucket is the name of the bucket seed files are uploaded to.
	Bucket string `mapstructure:"bucket" default:"seedgraph"`
	// Region is the location of the bucket (e.g., us-east-1).
	Region string `mapstructure:"region" default:""`
	// TimeoutSeconds is the connection timeout in seconds.
	TimeoutSeconds int `mapstructure:"timeout_seconds" default:"30"`
	// Prefix is the object key prefix for seed files.
	Prefix string `mapstructure:"prefix" default:"seeds"`
	// Format is the seed file encoding: yaml, json or msgpack.
	Format string `mapstructure:"format" default:"yaml"`
}
