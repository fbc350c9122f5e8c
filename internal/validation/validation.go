package validation

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/agora-social/agora/backend/internal/logger"
	"go.uber.org/zap"
)

// Check probes one backing service.
type Check func(ctx context.Context) error

// ServiceValidator fails startup when a service marked required is not
// reachable. Services are marked with AGORA_REQUIRE_<NAME>=true.
type ServiceValidator struct {
	requiredServices []string
	checks           map[string]Check
	timeout          time.Duration
}

// NewServiceValidator creates a validator over the given checks. Only the
// checks named by AGORA_REQUIRE_* variables run.
func NewServiceValidator(checks map[string]Check) *ServiceValidator {
	return &ServiceValidator{
		requiredServices: parseRequiredServices(checks),
		checks:           checks,
		timeout:          10 * time.Second,
	}
}

// Required returns the service names that will be validated.
func (sv *ServiceValidator) Required() []string {
	return sv.requiredServices
}

// ValidateServices runs every required check and stops at the first failure.
func (sv *ServiceValidator) ValidateServices(ctx context.Context) error {
	if len(sv.requiredServices) == 0 {
		logger.Log.Info("No required services configured for validation")
		return nil
	}

	logger.Log.Info("🔍 Validating required services",
		zap.Strings("services", sv.requiredServices),
	)

	for _, name := range sv.requiredServices {
		check := sv.checks[name]

		timeoutCtx, cancel := context.WithTimeout(ctx, sv.timeout)
		err := check(timeoutCtx)
		cancel()
		if err != nil {
			logger.Log.Error("❌ Required service validation failed",
				zap.String("service", name),
				zap.Error(err),
			)
			return fmt.Errorf("required service %q: %w", name, err)
		}

		logger.Log.Info("✅ Service validated successfully",
			zap.String("service", name),
		)
	}

	return nil
}

// parseRequiredServices reads AGORA_REQUIRE_<NAME> for every known check
func parseRequiredServices(checks map[string]Check) []string {
	var required []string
	for name := range checks {
		envVar := "AGORA_REQUIRE_" + strings.ToUpper(name)
		if isTruthy(os.Getenv(envVar)) {
			required = append(required, name)
		}
	}
	sort.Strings(required)
	return required
}

func isTruthy(value string) bool {
	value = strings.ToLower(strings.TrimSpace(value))
	return value == "1" || value == "true" || value == "yes" || value == "on"
}
