package db

// New initializes and returns a bun-backed Store for the given dbType and dsn.
// It also sets the package-level store returned by Default.
func New(dbType, dsn string) (Store, error) {
	s, err := NewStoreFromDSN(dbType, dsn)
	if err != nil {
		return nil, err
	}
	store = s
	return s, nil
}
