// Package config provides configuration management for seedgraph.
//
// It utilizes Viper for loading configuration from environment variables and
// an optional .env file. Defaults come from the `default` struct tags of each
// section.
//
// # Configuration Structure
//
// The Config struct is the central repository for all application settings, divided into subsections:
//   - Seeder: collision policy and key synthesis bound
//   - Database: MySQL or SQLite connection details
//   - Storage: S3/MinIO credentials, bucket, prefix and seed file format
//   - Log: Logging level and format
//
// # Usage
//
//	cfg, err := config.LoadConfig(".")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(cfg.Seeder.Policy)
package config
