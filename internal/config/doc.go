// Package config loads the per-project .iconfontrc file and builds the
// optional S3 client used to mirror downloaded bundles.
//
// The file is JSON (comments allowed) with the optional keys output,
// includes, flatten and mirror. A YAML file with the same keys is read
// when no JSON file exists. Keys present in the file replace the defaults
// one by one.
package config
