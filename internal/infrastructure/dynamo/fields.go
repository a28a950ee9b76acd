package dynamo

// Attribute names of the key/value table.
const (
	fieldKey       = "key"
	fieldValue     = "value"
	fieldUpdatedAt = "updated_at"
)
