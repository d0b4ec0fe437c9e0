package config

import "github.com/invopop/jsonschema"

// ParamsSchema returns a JSON Schema document describing the shape the
// supervisor expects for StrategyConfig in its entirety. The HTTP status
// surface exposes it so operators editing the config store can
// validate a document client-side, the same role
// engine.GetConfigSchema() plays for a trading engine's own config.
func ParamsSchema() (string, error) {
	reflector := jsonschema.Reflector{}
	schema := reflector.Reflect(&StrategyConfig{})

	b, err := schema.MarshalJSON()
	if err != nil {
		return "", err
	}

	return string(b), nil
}
