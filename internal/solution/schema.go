package solution

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/BurntSushi/toml"
	jsonschema "github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"
)

//go:embed descriptor.schema.json
var descriptorSchema []byte

const schemaURL = "https://slnlint.dev/schema/descriptor.json"

var compiledSchema = sync.OnceValues(func() (*jsonschema.Schema, error) {
	c := jsonschema.NewCompiler()
	if err := c.AddResource(schemaURL, bytes.NewReader(descriptorSchema)); err != nil {
		return nil, err
	}
	return c.Compile(schemaURL)
})

// checkSchema validates a raw descriptor document. Decoders accept some
// values the schema does not, such as a YAML number where a string is
// expected.
func checkSchema(data []byte, format string) error {
	var raw map[string]any
	var err error
	switch format {
	case "toml":
		err = toml.Unmarshal(data, &raw)
	default:
		err = yaml.Unmarshal(data, &raw)
	}
	if err != nil {
		return err
	}

	// jsonschema validates values as encoding/json produces them
	buf, err := json.Marshal(raw)
	if err != nil {
		return err
	}
	var doc any
	if err := json.Unmarshal(buf, &doc); err != nil {
		return err
	}

	schema, err := compiledSchema()
	if err != nil {
		return fmt.Errorf("descriptor schema: %w", err)
	}
	if err := schema.Validate(doc); err != nil {
		return fmt.Errorf("%w: %v", ErrSchema, err)
	}
	return nil
}
