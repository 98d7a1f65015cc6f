package shardspec

import "go.uber.org/zap"

// RegistryOpt configures registration.
type RegistryOpt struct {
	// FailFast stops at the first invalid spec instead of collecting every issue.
	FailFast bool
}

// ApplierOpt bundles applier options.
type ApplierOpt struct {
	Logger  *zap.Logger // Defaults to a no-op logger.
	Metrics *Metrics    // Optional.
}
