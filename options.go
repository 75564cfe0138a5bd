// Copyright 2012 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package turbodbc

import (
	"fmt"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// TruncationPolicy selects what happens when a variable length value
// does not fit its column buffer.
type TruncationPolicy int

const (
	// TruncationFlag keeps the truncated prefix and marks the row.
	TruncationFlag TruncationPolicy = iota
	// TruncationGrow refetches the full value and enlarges the buffer
	// for later batches.
	TruncationGrow
	// TruncationFail turns truncation into an ErrTruncation error.
	TruncationFail
)

var truncationNames = map[TruncationPolicy]string{
	TruncationFlag: "flag",
	TruncationGrow: "grow",
	TruncationFail: "fail",
}

func (p TruncationPolicy) String() string {
	if s, ok := truncationNames[p]; ok {
		return s
	}
	return fmt.Sprintf("TruncationPolicy(%d)", int(p))
}

func ParseTruncationPolicy(s string) (TruncationPolicy, error) {
	for p, name := range truncationNames {
		if strings.EqualFold(s, name) {
			return p, nil
		}
	}
	return 0, fmt.Errorf("unknown truncation policy %q (want flag, grow or fail)", s)
}

func (p TruncationPolicy) MarshalYAML() (interface{}, error) {
	return p.String(), nil
}

func (p *TruncationPolicy) UnmarshalYAML(value *yaml.Node) error {
	v, err := ParseTruncationPolicy(value.Value)
	if err != nil {
		return err
	}
	*p = v
	return nil
}

// DecimalMode selects the in-memory form of DECIMAL and NUMERIC columns.
type DecimalMode int

const (
	DecimalExact DecimalMode = iota
	DecimalApproximate
)

func (m DecimalMode) String() string {
	switch m {
	case DecimalExact:
		return "exact"
	case DecimalApproximate:
		return "approximate"
	}
	return fmt.Sprintf("DecimalMode(%d)", int(m))
}

func ParseDecimalMode(s string) (DecimalMode, error) {
	switch strings.ToLower(s) {
	case "exact":
		return DecimalExact, nil
	case "approximate":
		return DecimalApproximate, nil
	}
	return 0, fmt.Errorf("unknown decimal mode %q (want exact or approximate)", s)
}

func (m DecimalMode) MarshalYAML() (interface{}, error) {
	return m.String(), nil
}

func (m *DecimalMode) UnmarshalYAML(value *yaml.Node) error {
	v, err := ParseDecimalMode(value.Value)
	if err != nil {
		return err
	}
	*m = v
	return nil
}

const (
	DefaultBatchSize                = 1000
	DefaultVarcharMaxCharacterLimit = 65535
	DefaultParameterSetsToBuffer    = 1000
)

// Options configures a Connection and the Cursors it creates.
type Options struct {
	User     string `yaml:"user"`
	Password string `yaml:"password"`

	// BatchSize is the number of rows fetched per round trip.
	BatchSize int `yaml:"batch_size"`
	// ReadBufferMegabytes, when positive, overrides BatchSize: the row
	// count is derived from the result set's row width.
	ReadBufferMegabytes float64 `yaml:"read_buffer_megabytes"`

	Truncation TruncationPolicy `yaml:"truncation"`
	Decimals   DecimalMode      `yaml:"decimals"`
	Autocommit bool             `yaml:"autocommit"`

	PreferUnicode                bool `yaml:"prefer_unicode"`
	FetchWcharAsChar             bool `yaml:"fetch_wchar_as_char"`
	VarcharMaxCharacterLimit     int  `yaml:"varchar_max_character_limit"`
	LimitVarcharResultsToMax     bool `yaml:"limit_varchar_results_to_max"`
	ForceExtraCapacityForUnicode bool `yaml:"force_extra_capacity_for_unicode"`

	ParameterSetsToBuffer int           `yaml:"parameter_sets_to_buffer"`
	QueryTimeout          time.Duration `yaml:"query_timeout"`

	Logger *zap.Logger `yaml:"-"`
}

func DefaultOptions() Options {
	return Options{
		BatchSize:                DefaultBatchSize,
		VarcharMaxCharacterLimit: DefaultVarcharMaxCharacterLimit,
		ParameterSetsToBuffer:    DefaultParameterSetsToBuffer,
		Logger:                   zap.NewNop(),
	}
}

func (o *Options) validate() error {
	if o.BatchSize < 1 {
		return fmt.Errorf("batch_size must be positive, got %d", o.BatchSize)
	}
	if o.ReadBufferMegabytes < 0 {
		return fmt.Errorf("read_buffer_megabytes must not be negative, got %v", o.ReadBufferMegabytes)
	}
	if o.VarcharMaxCharacterLimit < 1 {
		return fmt.Errorf("varchar_max_character_limit must be positive, got %d", o.VarcharMaxCharacterLimit)
	}
	if o.ParameterSetsToBuffer < 1 {
		return fmt.Errorf("parameter_sets_to_buffer must be positive, got %d", o.ParameterSetsToBuffer)
	}
	if o.QueryTimeout < 0 {
		return fmt.Errorf("query_timeout must not be negative, got %v", o.QueryTimeout)
	}
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
	return nil
}

// ParseOptions decodes YAML on top of DefaultOptions.
func ParseOptions(data []byte) (Options, error) {
	o := DefaultOptions()
	if err := yaml.Unmarshal(data, &o); err != nil {
		return Options{}, fmt.Errorf("turbodbc: parsing options: %w", err)
	}
	if err := o.validate(); err != nil {
		return Options{}, fmt.Errorf("turbodbc: %w", err)
	}
	return o, nil
}

// LoadOptions reads a YAML options file.
func LoadOptions(path string) (Options, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Options{}, fmt.Errorf("turbodbc: %w", err)
	}
	return ParseOptions(data)
}

// Option modifies Options.
type Option func(*Options)

// WithOptions replaces all options, typically with ones from LoadOptions.
// Options given after it still apply.
func WithOptions(o Options) Option {
	return func(dst *Options) {
		l := dst.Logger
		*dst = o
		if dst.Logger == nil {
			dst.Logger = l
		}
	}
}

func WithCredentials(user, password string) Option {
	return func(o *Options) {
		o.User = user
		o.Password = password
	}
}

func WithBatchSize(rows int) Option {
	return func(o *Options) { o.BatchSize = rows }
}

func WithReadBufferMegabytes(mb float64) Option {
	return func(o *Options) { o.ReadBufferMegabytes = mb }
}

func WithTruncation(p TruncationPolicy) Option {
	return func(o *Options) { o.Truncation = p }
}

func WithDecimals(m DecimalMode) Option {
	return func(o *Options) { o.Decimals = m }
}

func WithAutocommit(on bool) Option {
	return func(o *Options) { o.Autocommit = on }
}

func WithPreferUnicode(on bool) Option {
	return func(o *Options) { o.PreferUnicode = on }
}

func WithFetchWcharAsChar(on bool) Option {
	return func(o *Options) { o.FetchWcharAsChar = on }
}

func WithVarcharMaxCharacterLimit(n int) Option {
	return func(o *Options) { o.VarcharMaxCharacterLimit = n }
}

func WithLimitVarcharResultsToMax(on bool) Option {
	return func(o *Options) { o.LimitVarcharResultsToMax = on }
}

func WithForceExtraCapacityForUnicode(on bool) Option {
	return func(o *Options) { o.ForceExtraCapacityForUnicode = on }
}

func WithParameterSetsToBuffer(n int) Option {
	return func(o *Options) { o.ParameterSetsToBuffer = n }
}

func WithQueryTimeout(d time.Duration) Option {
	return func(o *Options) { o.QueryTimeout = d }
}

func WithLogger(l *zap.Logger) Option {
	return func(o *Options) { o.Logger = l }
}

func buildOptions(opts []Option) (Options, error) {
	o := DefaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	if err := o.validate(); err != nil {
		return Options{}, newKindError("connect", ErrConnection, "%v", err)
	}
	return o, nil
}
