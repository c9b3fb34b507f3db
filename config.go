package pagealloc

import (
	"fmt"
	"io"

	"github.com/go-playground/validator/v10"
	"github.com/tiendc/go-deepcopy"
	"gopkg.in/yaml.v3"

	"github.com/hypatia-of-sva/pagealloc/internal/result"
)

// Config describes one arena before it is built. PageSize must be a
// positive multiple of 64 (the arena's natural alignment granularity);
// InitialPages must be a positive multiple of 4 (the PAT's byte-packing
// granularity, four 2-bit states per byte).
type Config struct {
	PageSize uint32 `yaml:"page_size" validate:"required,multiple64"`
	// InitialPages is the arena's starting page count. Grow extends it
	// later in the same increments.
	InitialPages uint32 `yaml:"initial_pages" validate:"required,multiple4"`
	// TrackAllocations enables the optional introspection index consulted
	// by ListAllocations. It never affects allocation decisions.
	TrackAllocations bool `yaml:"track_allocations"`
	// MetricsNamespace, when non-empty, creates Prometheus gauges under it,
	// available for registration through Allocator.MetricsCollectors.
	// Leave empty to skip metrics entirely.
	MetricsNamespace string `yaml:"metrics_namespace"`
	// UseMmap selects the mmap-backed memory provider over the default
	// heap-backed one. On non-unix build targets the mmap provider fails
	// every operation, so New returns an error when this is set.
	UseMmap bool `yaml:"use_mmap"`
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	must := func(err error) {
		if err != nil {
			panic(err)
		}
	}
	must(v.RegisterValidation("multiple64", func(fl validator.FieldLevel) bool {
		n := fl.Field().Uint()
		return n != 0 && n%64 == 0
	}))
	must(v.RegisterValidation("multiple4", func(fl validator.FieldLevel) bool {
		n := fl.Field().Uint()
		return n != 0 && n%4 == 0
	}))
	return v
}

// LoadConfig unmarshals a Config from YAML and validates it.
func LoadConfig(r io.Reader) (Config, error) {
	var cfg Config
	dec := yaml.NewDecoder(r)
	if err := dec.Decode(&cfg); err != nil {
		return Config{}, fmt.Errorf("%w: failed to parse configuration: %v", result.ErrInvalidParameter, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the constraints documented on Config's fields.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("%w: %v", result.ErrInvalidParameter, err)
	}
	return nil
}

// clone deep-copies cfg so a caller mutating the Config they passed to New
// cannot reach into an already-running Allocator.
func (c Config) clone() (Config, error) {
	var out Config
	if err := deepcopy.Copy(&out, &c); err != nil {
		return Config{}, fmt.Errorf("%w: failed to copy configuration: %v", result.ErrUnknown, err)
	}
	return out, nil
}
