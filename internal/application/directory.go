package application

import "context"

// CustomerDirectory exposes the customer, property and pool lookups the core
// needs. Lookups return nil without error when the record does not exist.
type CustomerDirectory interface {
	CustomerExists(ctx context.Context, id string) (bool, error)
	CustomerIDForProperty(ctx context.Context, propertyID string) (string, bool, error)
	LookupCustomer(ctx context.Context, id string) (*CustomerSummary, error)
	LookupProperty(ctx context.Context, id string) (*PropertySummary, error)
	LookupPool(ctx context.Context, id string) (*PoolSummary, error)
}

// ensureCustomerExists returns a NotFound-class error when id is unknown.
func ensureCustomerExists(ctx context.Context, directory CustomerDirectory, id string) error {
	if directory == nil {
		return nil
	}
	ok, err := directory.CustomerExists(ctx, id)
	if err != nil {
		return err
	}
	if !ok {
		return notFoundf("customer %s", id)
	}
	return nil
}

// ensurePoolExists returns a NotFound-class error when a referenced pool is
// unknown.
func ensurePoolExists(ctx context.Context, directory CustomerDirectory, id *string) error {
	if directory == nil || id == nil {
		return nil
	}
	pool, err := directory.LookupPool(ctx, *id)
	if err != nil {
		return err
	}
	if pool == nil {
		return notFoundf("pool %s", *id)
	}
	return nil
}
