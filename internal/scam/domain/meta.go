package domain

// CatalogMeta describes the snapshot committed alongside a verified filter.
type CatalogMeta struct {
	Version        uint64 // monotonically increasing snapshot version
	UpdatedUnix    int64  // seconds since epoch
	RunID          string // identifier of the build run that produced the snapshot
	Records        uint64 // number of catalogued records
	FilterChecksum uint64 // checksum trailer of the committed filter artifact
}
