package auth

import (
	"fmt"
	"time"

	"session-gate/config"
)

// StoreOptions selects and configures a session chain.
type StoreOptions struct {
	Type     string
	Duration time.Duration
	Records  RecordCollection
}

// NewStore builds the chain for an auth type:
//
//	none, basic_auth, session_auth -> MemoryStore
//	session_exp_auth               -> ExpiryStore(MemoryStore)
//	session_db_auth                -> PersistentStore(ExpiryStore(MemoryStore))
func NewStore(so StoreOptions, opts ...Option) (Store, error) {
	mem := NewMemoryStore(opts...)
	switch so.Type {
	case config.AuthNone, config.AuthBasic, config.AuthSession:
		return mem, nil
	case config.AuthSessionExpiry:
		return NewExpiryStore(mem, so.Duration, opts...), nil
	case config.AuthSessionDB:
		if so.Records == nil {
			return nil, fmt.Errorf("%s requires a record collection", so.Type)
		}
		return NewPersistentStore(NewExpiryStore(mem, so.Duration, opts...), so.Records, opts...), nil
	default:
		return nil, fmt.Errorf("unknown auth type %q", so.Type)
	}
}
