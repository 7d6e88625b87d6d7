package toml

import (
	"context"
	"fmt"
	"sort"

	"github.com/bnema/smartwallet-cli/internal/domain"
	"github.com/bnema/smartwallet-cli/internal/ports"
	"github.com/ethereum/go-ethereum/common"
)

type ContactRepository struct {
	store *Store
}

var _ ports.ContactRepository = (*ContactRepository)(nil)

// GetByName matches names case-insensitively.
func (r *ContactRepository) GetByName(ctx context.Context, name string) (domain.Contact, error) {
	key := domain.NormalizeContactName(name)

	var contact domain.Contact
	err := r.store.view(ctx, func(file fileSchema) error {
		for _, entry := range file.Contacts {
			if domain.NormalizeContactName(entry.Name) == key {
				decoded, err := contactFromSchema(entry)
				if err != nil {
					return err
				}
				contact = decoded
				return nil
			}
		}
		return domain.ErrContactNotFound
	})
	if err != nil {
		return domain.Contact{}, err
	}

	return contact, nil
}

// List returns contacts sorted by name.
func (r *ContactRepository) List(ctx context.Context) ([]domain.Contact, error) {
	var contacts []domain.Contact
	err := r.store.view(ctx, func(file fileSchema) error {
		contacts = make([]domain.Contact, 0, len(file.Contacts))
		for _, entry := range file.Contacts {
			contact, err := contactFromSchema(entry)
			if err != nil {
				return err
			}
			contacts = append(contacts, contact)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(contacts, func(i, j int) bool {
		return domain.NormalizeContactName(contacts[i].Name) < domain.NormalizeContactName(contacts[j].Name)
	})
	return contacts, nil
}

func (r *ContactRepository) Save(ctx context.Context, contact domain.Contact) error {
	return r.store.update(ctx, func(file *fileSchema) error {
		encoded := contactToSchema(contact)
		for i := range file.Contacts {
			if file.Contacts[i].ID == encoded.ID {
				file.Contacts[i] = encoded
				return nil
			}
		}

		file.Contacts = append(file.Contacts, encoded)
		return nil
	})
}

func (r *ContactRepository) Delete(ctx context.Context, id domain.ContactID) error {
	return r.store.update(ctx, func(file *fileSchema) error {
		for i := range file.Contacts {
			if file.Contacts[i].ID == string(id) {
				file.Contacts = append(file.Contacts[:i], file.Contacts[i+1:]...)
				return nil
			}
		}
		return domain.ErrContactNotFound
	})
}

func contactToSchema(contact domain.Contact) contactSchema {
	return contactSchema{
		ID:        string(contact.ID),
		Name:      contact.Name,
		Address:   contact.Address.Hex(),
		CreatedAt: formatTime(contact.CreatedAt),
	}
}

func contactFromSchema(entry contactSchema) (domain.Contact, error) {
	if !common.IsHexAddress(entry.Address) {
		return domain.Contact{}, fmt.Errorf("decode contact %q: invalid address %q", entry.Name, entry.Address)
	}

	return domain.Contact{
		ID:        domain.ContactID(entry.ID),
		Name:      entry.Name,
		Address:   common.HexToAddress(entry.Address),
		CreatedAt: parseTime(entry.CreatedAt),
	}, nil
}
