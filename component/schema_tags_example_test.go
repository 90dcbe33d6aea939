package component_test

import (
	"encoding/json"
	"fmt"
	"reflect"

	"github.com/c360/flowgate/component"
)

// ExampleGenerateConfigSchema shows a gateway adapter deriving its
// ConfigSchema from struct tags instead of maintaining the schema by hand.
func ExampleGenerateConfigSchema() {
	type adapterConfig struct {
		Host string `json:"host" schema:"type:string,description:Bind address,default:0.0.0.0,category:basic"`
		Port int    `json:"port" schema:"type:int,description:Listen port,min:1,max:65535,default:8087,category:basic"`

		Timeout        string `json:"timeout"          schema:"type:string,description:Per-request pipeline deadline,default:5s,category:advanced"`
		MaxRequestSize int    `json:"max_request_size" schema:"type:int,description:Request body cap in bytes,category:advanced"`

		TLSCertFile string `json:"tls_cert_file" schema:"required,type:string,description:Server certificate path"`
	}

	// One reflection pass at package init; the result is cached in a
	// package-level variable by real adapters.
	schema := component.GenerateConfigSchema(reflect.TypeOf(adapterConfig{}))

	out, _ := json.MarshalIndent(schema, "", "  ")
	fmt.Println(string(out))
}

// ExampleParseSchemaTag walks through the directives of a single field tag.
func ExampleParseSchemaTag() {
	tag := "type:int,description:Listen port,min:1,max:65535,default:8087"
	directives, err := component.ParseSchemaTag(tag)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}

	fmt.Printf("Type: %s\n", directives.Type)
	fmt.Printf("Description: %s\n", directives.Description)
	fmt.Printf("Min: %d\n", *directives.Min)
	fmt.Printf("Max: %d\n", *directives.Max)
	fmt.Printf("Default: %s\n", directives.Default)

	// Output:
	// Type: int
	// Description: Listen port
	// Min: 1
	// Max: 65535
	// Default: 8087
}

// ExampleParseSchemaTag_enum shows pipe-separated enum values, as used for
// the protocol selector in gateway configuration.
func ExampleParseSchemaTag_enum() {
	tag := "type:enum,description:Served protocol,enum:http|websocket|grpc,default:http"
	directives, _ := component.ParseSchemaTag(tag)

	fmt.Printf("Type: %s\n", directives.Type)
	fmt.Printf("Description: %s\n", directives.Description)
	fmt.Printf("Enum values: %v\n", directives.Enum)
	fmt.Printf("Default: %s\n", directives.Default)

	// Output:
	// Type: enum
	// Description: Served protocol
	// Enum values: [http websocket grpc]
	// Default: http
}

// ExampleParseSchemaTag_flags shows the bare boolean directives.
func ExampleParseSchemaTag_flags() {
	tag := "required,readonly,type:string,description:Flow identifier"
	directives, _ := component.ParseSchemaTag(tag)

	fmt.Printf("Type: %s\n", directives.Type)
	fmt.Printf("Required: %v\n", directives.Required)
	fmt.Printf("ReadOnly: %v\n", directives.ReadOnly)

	// Output:
	// Type: string
	// Required: true
	// ReadOnly: true
}
