package rtr

import (
	"os"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigFastest

// ConvertJSONFileToConfig opens a file.json and converts to RetrieverSeasoning.
func ConvertJSONFileToConfig(fileNamePath string) (*RetrieverSeasoning, error) {

	byteValue, err := os.ReadFile(fileNamePath)
	if err != nil {
		return nil, err
	}

	config := &RetrieverSeasoning{}
	err = json.Unmarshal(byteValue, config)

	return config, err
}
