package app

import "github.com/neomorfeo/farmconf/internal/domain"

// FarmSet is the ordered list of farms served by this installation. The first
// farm is the default for requests that match none.
type FarmSet []domain.Farm

// ByName returns the farm called name.
func (fs FarmSet) ByName(name string) (domain.Farm, error) {
	for _, f := range fs {
		if f.Name == name {
			return f, nil
		}
	}
	return domain.Farm{}, &domain.UnknownFarmError{Name: name}
}

// ForWiki returns the farm owning dbname. The default wiki belongs to the
// first farm.
func (fs FarmSet) ForWiki(dbname string) (domain.Farm, error) {
	if dbname == domain.DefaultWiki && len(fs) > 0 {
		return fs[0], nil
	}
	for _, f := range fs {
		if f.Owns(dbname) {
			return f, nil
		}
	}
	return domain.Farm{}, &domain.UnknownFarmError{Name: dbname}
}

// Default returns the first farm.
func (fs FarmSet) Default() domain.Farm {
	if len(fs) == 0 {
		return domain.Farm{}
	}
	return fs[0]
}
