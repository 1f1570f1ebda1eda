package badger

import "fmt"

// Key prefixes for different data types
const (
	recordPrefix  = "rec"
	versionPrefix = "ver"
)

// makeRecordKey generates a key for a record in a collection.
func makeRecordKey(collection, key string) []byte {
	return []byte(fmt.Sprintf("%s:%s:%s", recordPrefix, collection, key))
}

// makeRecordPrefix generates the key prefix shared by every record of a
// collection, for scans.
func makeRecordPrefix(collection string) []byte {
	return []byte(fmt.Sprintf("%s:%s:", recordPrefix, collection))
}

// makeVersionKey generates the key holding a collection's schema version.
func makeVersionKey(collection string) []byte {
	return []byte(fmt.Sprintf("%s:%s", versionPrefix, collection))
}
