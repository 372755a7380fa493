package main

import (
	"context"
	"os"
	"strconv"

	"github.com/cockroachdb/errors"
	"github.com/hoyle1974/chunkfile/chunks"
	"github.com/hoyle1974/chunkfile/storage"
	flag "github.com/spf13/pflag"
	"gopkg.in/yaml.v3"
)

// Config is what can be put in the --config file. Flags given on the command
// line win over it.
type Config struct {
	Source       string           `yaml:"source"`
	URI          string           `yaml:"uri"`
	S3           storage.S3Config `yaml:"s3"`
	Fingerprints []string         `yaml:"fingerprints"`
	Verbose      bool             `yaml:"verbose"`
}

func defaultConfig() Config {
	return Config{Source: "disk", URI: "."}
}

func loadConfigFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrapf(err, "can not read config %s", path)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return errors.Wrapf(err, "can not parse config %s", path)
	}
	return nil
}

type flags struct {
	set          *flag.FlagSet
	config       *string
	source       *string
	uri          *string
	bucket       *string
	region       *string
	endpoint     *string
	accessKey    *string
	secretKey    *string
	fingerprints *[]string
	verbose      *bool
	json         *bool
}

func newFlags() *flags {
	set := flag.NewFlagSet("chunkfile", flag.ContinueOnError)
	return &flags{
		set:          set,
		config:       set.String("config", "", "YAML file with default settings"),
		source:       set.StringP("source", "s", "disk", "The source to work against (memory, disk or s3)"),
		uri:          set.StringP("uri", "u", ".", "The uri to the source"),
		bucket:       set.String("bucket", "", "S3 bucket"),
		region:       set.String("region", "", "S3 region"),
		endpoint:     set.String("endpoint", "", "S3 endpoint, for localstack or minio"),
		accessKey:    set.String("access-key", "", "Static S3 access key"),
		secretKey:    set.String("secret-key", "", "Static S3 secret key"),
		fingerprints: set.StringArrayP("fingerprint", "f", nil, "Accepted fingerprint, hex or a chunk id name (repeatable)"),
		verbose:      set.BoolP("verbose", "v", false, "Debug logging"),
		json:         set.Bool("json", false, "Print inspect output as JSON"),
	}
}

// resolve layers the config file (if any) and then changed flags over the
// defaults.
func (f *flags) resolve() (Config, error) {
	cfg := defaultConfig()
	if *f.config != "" {
		if err := loadConfigFile(*f.config, &cfg); err != nil {
			return Config{}, err
		}
	}

	override := func(name string, dst *string, v string) {
		if f.set.Changed(name) {
			*dst = v
		}
	}
	override("source", &cfg.Source, *f.source)
	override("uri", &cfg.URI, *f.uri)
	override("bucket", &cfg.S3.Bucket, *f.bucket)
	override("region", &cfg.S3.Region, *f.region)
	override("endpoint", &cfg.S3.Endpoint, *f.endpoint)
	override("access-key", &cfg.S3.AccessKey, *f.accessKey)
	override("secret-key", &cfg.S3.SecretKey, *f.secretKey)
	if f.set.Changed("fingerprint") {
		cfg.Fingerprints = *f.fingerprints
	}
	if f.set.Changed("verbose") {
		cfg.Verbose = *f.verbose
	}
	return cfg, nil
}

func openStorage(ctx context.Context, cfg Config) (storage.System, error) {
	switch cfg.Source {
	case "memory":
		return storage.NewMemoryStorage(), nil
	case "disk":
		return storage.NewDiskStorage(cfg.URI), nil
	case "s3":
		s3 := cfg.S3
		if s3.Bucket == "" {
			s3.Bucket = cfg.URI
		}
		return storage.NewS3StorageFromConfig(ctx, s3)
	}
	return nil, errors.Newf("unsupported storage system: %s", cfg.Source)
}

// parseId accepts a number (0x prefixed for hex) or a name of up to 8
// characters.
func parseId(s string) (chunks.ChunkId, error) {
	if v, err := strconv.ParseUint(s, 0, 64); err == nil {
		return chunks.ChunkIdFromLiteral(v), nil
	}
	return chunks.NewChunkId(s)
}

func parseFingerprints(in []string) ([]uint64, error) {
	ret := make([]uint64, 0, len(in))
	for _, s := range in {
		id, err := parseId(s)
		if err != nil {
			return nil, errors.Wrapf(err, "bad fingerprint %q", s)
		}
		ret = append(ret, uint64(id))
	}
	return ret, nil
}
