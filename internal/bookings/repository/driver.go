package repository

import "urutibiz/pkg/config"

// NewBookingRepository picks the implementation STORE_DRIVER names. The
// matching client must already be connected.
func NewBookingRepository(cfg *config.Config) BookingRepository {
	switch cfg.StoreDriver {
	case config.StoreDriverPostgres:
		return NewPostgresBookingRepository(cfg)
	case config.StoreDriverMemory:
		return NewMemoryBookingRepository()
	default:
		return NewMongoBookingRepository(cfg)
	}
}

func NewLeaseRepository(cfg *config.Config) LeaseRepository {
	switch cfg.StoreDriver {
	case config.StoreDriverPostgres:
		return NewPostgresLeaseRepository(cfg)
	case config.StoreDriverMemory:
		return NewMemoryLeaseRepository()
	default:
		return NewMongoLeaseRepository(cfg)
	}
}
