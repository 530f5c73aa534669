package config

// schema is the JSON Schema every configuration document must satisfy before
// decoding. model_type is validated in code so unknown estimators surface as
// UnsupportedModelError rather than a generic schema failure.
const schema = `{
	"$schema": "http://json-schema.org/draft-04/schema#",
	"type": "object",
	"required": ["model_type", "label_space", "query_batch_size"],
	"properties": {
		"model_type": {"type": "string"},
		"training_args": {"type": "object"},
		"label_space": {
			"type": "array",
			"minItems": 1,
			"items": {"type": ["string", "number"]}
		},
		"query_strategy": {"enum": ["uncertainty", "random"]},
		"query_batch_size": {"type": "integer", "minimum": 1},
		"validation_split": {
			"type": "number",
			"minimum": 0,
			"exclusiveMinimum": true,
			"maximum": 1,
			"exclusiveMaximum": true
		},
		"max_iterations": {"type": "integer", "minimum": 1},
		"seed": {"type": "integer"}
	}
}`
