package aware

import (
	"errors"

	"github.com/aware-protocol/aware-go/pkg/hal"
)

// ErrIncompatibleConfig is returned when a set of per-client configuration
// requests cannot be merged into a single radio configuration.
var ErrIncompatibleConfig = errors.New("aware: incompatible configuration requests")

// ConfigRequest is one client's attach-time configuration preferences. The
// zero value requests 2.4 GHz only with defaults everywhere else.
type ConfigRequest struct {
	// Support5GHz / Support6GHz request operation on the extra bands.
	Support5GHz bool
	Support6GHz bool

	// MasterPreference in [0, 255].
	MasterPreference uint8

	// ClusterLow/ClusterHigh bound the cluster ID range [0, 0xFFFF].
	// Meaningful only when ClusterRangeSet.
	ClusterRangeSet bool
	ClusterLow      int
	ClusterHigh     int

	// DiscoveryWindowInterval holds the requested DW interval per band,
	// indexed by hal.Band. hal.DiscoveryWindowUnset yields to other
	// clients; hal.DiscoveryWindowDisabled asks for no wakeups but is
	// overridden by any client requesting a concrete interval.
	DiscoveryWindowInterval [3]int
}

// DefaultConfigRequest returns the request used when a client attaches
// without explicit preferences.
func DefaultConfigRequest() ConfigRequest {
	return ConfigRequest{
		DiscoveryWindowInterval: [3]int{
			hal.DiscoveryWindowUnset,
			hal.DiscoveryWindowUnset,
			hal.DiscoveryWindowUnset,
		},
	}
}

// mergedConfig is the comparable result of merging all clients' requests.
// Aggregate flags (identity notify, ranging, instant mode) are layered on
// top at dispatch time and are not part of the merge itself.
type mergedConfig struct {
	support5GHz      bool
	support6GHz      bool
	masterPreference uint8
	clusterRangeSet  bool
	clusterLow       int
	clusterHigh      int
	dwInterval       [3]int
}

// mergeConfigRequests folds the given requests into one radio configuration.
// Band support is the union, master preference the maximum. All requests
// that pin a cluster range must agree exactly; disagreement fails the whole
// merge. Per-band DW intervals: unset yields, disabled is overridden by any
// concrete interval, otherwise the minimum wins.
func mergeConfigRequests(requests []ConfigRequest) (mergedConfig, error) {
	merged := mergedConfig{
		dwInterval: [3]int{
			hal.DiscoveryWindowUnset,
			hal.DiscoveryWindowUnset,
			hal.DiscoveryWindowUnset,
		},
	}
	for _, req := range requests {
		merged.support5GHz = merged.support5GHz || req.Support5GHz
		merged.support6GHz = merged.support6GHz || req.Support6GHz
		if req.MasterPreference > merged.masterPreference {
			merged.masterPreference = req.MasterPreference
		}
		if req.ClusterRangeSet {
			if merged.clusterRangeSet {
				if merged.clusterLow != req.ClusterLow || merged.clusterHigh != req.ClusterHigh {
					return mergedConfig{}, ErrIncompatibleConfig
				}
			} else {
				merged.clusterRangeSet = true
				merged.clusterLow = req.ClusterLow
				merged.clusterHigh = req.ClusterHigh
			}
		}
		for band := 0; band < 3; band++ {
			merged.dwInterval[band] = mergeDwInterval(merged.dwInterval[band], req.DiscoveryWindowInterval[band])
		}
	}
	return merged, nil
}

func mergeDwInterval(a, b int) int {
	switch {
	case a == hal.DiscoveryWindowUnset:
		return b
	case b == hal.DiscoveryWindowUnset:
		return a
	case a == hal.DiscoveryWindowDisabled:
		return b
	case b == hal.DiscoveryWindowDisabled:
		return a
	case b < a:
		return b
	default:
		return a
	}
}

// halConfig expands a merged configuration plus the aggregate flags into the
// wire-level radio configuration.
func (m mergedConfig) halConfig(notifyIdentity, ranging bool, instantMode hal.InstantMode) hal.Config {
	cfg := hal.Config{
		Support5GHz:             m.support5GHz,
		Support6GHz:             m.support6GHz,
		MasterPreference:        int(m.masterPreference),
		DiscoveryWindowInterval: m.dwInterval,
		NotifyIdentityChange:    notifyIdentity,
		RangingEnabled:          ranging,
		InstantMode:             instantMode,
	}
	if m.clusterRangeSet {
		cfg.ClusterLow = m.clusterLow
		cfg.ClusterHigh = m.clusterHigh
	} else {
		cfg.ClusterLow = 0
		cfg.ClusterHigh = 0xFFFF
	}
	return cfg
}
