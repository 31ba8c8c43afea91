package redis

// Redis key naming conventions for stateflow data.
// All keys are prefixed with "stateflow:" to avoid collisions.

const keyPrefix = "stateflow:"

// definitionKey returns the Hash key for a definition: stateflow:definition:{id}
func definitionKey(id string) string { return keyPrefix + "definition:" + id }

// definitionIDsKey is the Set tracking all definition IDs for enumeration.
const definitionIDsKey = keyPrefix + "definition_ids"

// instanceKey returns the Hash key for an instance: stateflow:instance:{id}
func instanceKey(id string) string { return keyPrefix + "instance:" + id }

// instanceIDsKey is the Set tracking all instance IDs for enumeration.
const instanceIDsKey = keyPrefix + "instance_ids"

// definitionInstancesKey returns the Set of instance IDs started from a
// definition: stateflow:definition_instances:{definitionID}
func definitionInstancesKey(definitionID string) string {
	return keyPrefix + "definition_instances:" + definitionID
}
