// Package config loads the service configuration with viper.
//
// Values come from built-in defaults, an optional YAML file, an optional .env
// file and PROPERTYINBOX_-prefixed environment variables, later sources
// winning. Nested keys map onto environment names by replacing dots with
// underscores: drive.parent_folder_id is PROPERTYINBOX_DRIVE_PARENT_FOLDER_ID.
package config
