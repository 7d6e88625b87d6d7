package toml

import "fmt"

const currentSchemaVersion = 1

type fileSchema struct {
	Version   int               `toml:"version"`
	Wallet    *walletSchema     `toml:"wallet,omitempty"`
	Contacts  []contactSchema   `toml:"contacts"`
	Recurring []recurringSchema `toml:"recurring"`
}

func (s *fileSchema) applyDefaults() {
	if s.Version == 0 {
		s.Version = currentSchemaVersion
	}
	if s.Contacts == nil {
		s.Contacts = []contactSchema{}
	}
	if s.Recurring == nil {
		s.Recurring = []recurringSchema{}
	}
}

func (s fileSchema) validateVersion() error {
	if s.Version > currentSchemaVersion {
		return fmt.Errorf("unsupported data schema version %d (current %d)", s.Version, currentSchemaVersion)
	}

	return nil
}

type walletSchema struct {
	Owner      string `toml:"owner"`
	KeyRef     string `toml:"key_ref"`
	ImportedAt string `toml:"imported_at"`
}

type contactSchema struct {
	ID        string `toml:"id"`
	Name      string `toml:"name"`
	Address   string `toml:"address"`
	CreatedAt string `toml:"created_at"`
}

type recurringSchema struct {
	ID        string `toml:"id"`
	Name      string `toml:"name"`
	Recipient string `toml:"recipient"`
	// Amount is a base-10 integer in the token's smallest unit.
	Amount         string `toml:"amount"`
	Token          string `toml:"token,omitempty"`
	Schedule       string `toml:"schedule"`
	Active         bool   `toml:"active"`
	CreatedAt      string `toml:"created_at"`
	NextRunAt      string `toml:"next_run_at,omitempty"`
	LastRunAt      string `toml:"last_run_at,omitempty"`
	LastUserOpHash string `toml:"last_user_op_hash,omitempty"`
	LastError      string `toml:"last_error,omitempty"`
}
