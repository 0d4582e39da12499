package device

import (
	"context"
	"fmt"

	"github.com/devicelab-dev/actionrunner/pkg/core"
	"github.com/devicelab-dev/actionrunner/pkg/flow"
	"github.com/devicelab-dev/actionrunner/pkg/logger"
)

// Preflight verifies the profile's app is installed and grants its declared
// permissions. A missing app is ErrPrecondition; grant failures are logged
// since the app may not declare the permission.
func Preflight(ctx context.Context, d *AndroidDevice, cfg flow.Config) error {
	if cfg.AppID == "" {
		return nil
	}

	installed, err := d.IsInstalled(ctx, cfg.AppID)
	if err != nil {
		return core.ErrPrecondition.WithMessage("check installed packages").WithCause(err)
	}
	if !installed {
		return core.ErrPrecondition.WithMessage(
			fmt.Sprintf("%s is not installed on %s", cfg.AppID, d.Serial()))
	}

	for _, perm := range cfg.Permissions {
		if err := d.GrantPermission(ctx, cfg.AppID, perm); err != nil {
			logger.Warn("grant %s to %s on %s: %v", perm, cfg.AppID, d.Serial(), err)
			continue
		}
		logger.Debug("granted %s to %s", perm, cfg.AppID)
	}
	return nil
}
