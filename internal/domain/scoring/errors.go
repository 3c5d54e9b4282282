package scoring

import (
	"errors"
	"fmt"

	"github.com/okian/saferoute/internal/domain/model"
)

// ErrInvalidConfig is matched by every ConfigError.
var ErrInvalidConfig = errors.New("invalid scoring configuration")

// ConfigError reports a non-positive or non-finite scoring parameter.
type ConfigError struct {
	Category model.Category
	Field    string
	Value    float64
}

func (e *ConfigError) Error() string {
	if e.Category == "" {
		return fmt.Sprintf("scoring: %s must be positive, got %v", e.Field, e.Value)
	}
	return fmt.Sprintf("scoring: category %q: %s must be positive, got %v", e.Category, e.Field, e.Value)
}

// Is reports ErrInvalidConfig as a match.
func (e *ConfigError) Is(target error) bool { return target == ErrInvalidConfig }
