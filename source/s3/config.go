package s3

// DefaultRegion is the default AWS region.
const DefaultRegion = "us-east-1"

// Config holds S3 connection settings. The bucket is not configured
// here: it comes from each s3://bucket/key reference.
type Config struct {
	// Region is the AWS region.
	Region string `mapstructure:"region" json:"region" yaml:"region"`

	// Endpoint is a custom S3-compatible endpoint (e.g. MinIO).
	Endpoint string `mapstructure:"endpoint" json:"endpoint,omitempty" yaml:"endpoint"`

	// AccessKey is the AWS access key ID. Empty falls back to the
	// ambient credential chain.
	AccessKey string `mapstructure:"access_key" json:"access_key,omitempty" yaml:"access_key"`

	// SecretKey is the AWS secret access key.
	SecretKey string `mapstructure:"secret_key" json:"secret_key,omitempty" yaml:"secret_key"`

	// ForcePathStyle forces path-style URLs instead of
	// virtual-hosted-style.
	ForcePathStyle bool `mapstructure:"force_path_style" json:"force_path_style,omitempty" yaml:"force_path_style"`
}

// ApplyDefaults fills in zero-valued fields with defaults.
func (c *Config) ApplyDefaults() {
	if c.Region == "" {
		c.Region = DefaultRegion
	}
}
