package commands

import (
	"encoding/json"
	"fmt"
)

// MarshalAndPrint renders any value as pretty JSON.
func MarshalAndPrint(v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(data))
	return nil
}
