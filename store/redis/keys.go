package redis

// Redis key naming conventions for auditor data.
// All keys are prefixed with "auditor:" to avoid collisions.

const keyPrefix = "auditor:"

// execKey returns the key for an execution entity: auditor:execution:{id}
func execKey(id string) string { return keyPrefix + "execution:" + id }

// execIDsKey is the Set tracking all execution IDs for enumeration.
const execIDsKey = keyPrefix + "execution_ids"
