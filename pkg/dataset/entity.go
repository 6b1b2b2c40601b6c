package dataset

// entity is the part every entity shares: the owning dataset and the key the
// entity was decoded from. Cross references are kept as keys and resolved on
// demand through the dataset.
type entity struct {
	ds  *Dataset
	key int32
}

// Dataset returns the dataset the entity was decoded from.
func (e entity) Dataset() *Dataset { return e.ds }

// alive returns ErrClosed once the dataset is closed.
func (e entity) alive() error {
	if e.ds.closed.Load() {
		return ErrClosed
	}
	return nil
}
