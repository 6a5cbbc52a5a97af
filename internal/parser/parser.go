package parser

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	stderrors "errors" // Standard errors package
	"github.com/mcncl/deskview/internal/errors" // Custom errors package
	"github.com/mcncl/deskview/internal/models"
)

// Parse decodes exactly one JSON value from reader, keeping object key order.
func Parse(reader io.Reader) (models.Value, error) {
	decoder := json.NewDecoder(reader)
	decoder.UseNumber()

	rootValue, err := decodeValue(decoder)
	if err != nil {
		if stderrors.Is(err, io.EOF) {
			return models.Null(), errors.NewParsingError("input is empty or contains only whitespace", errors.ErrEmptyInput)
		}
		return models.Null(), wrapDecodeError(err)
	}

	// Only whitespace may follow the root value.
	if _, err := decoder.Token(); err == nil {
		return models.Null(), errors.NewParsingError("multiple JSON values found at the root", errors.ErrMultipleJSON)
	} else if !stderrors.Is(err, io.EOF) {
		return models.Null(), errors.NewParsingError("invalid trailing data after first JSON value", err)
	}

	return rootValue, nil
}

func wrapDecodeError(err error) error {
	var syntaxError *json.SyntaxError
	if stderrors.As(err, &syntaxError) {
		return errors.NewParsingError(
			fmt.Sprintf("JSON syntax error at offset %d", syntaxError.Offset),
			errors.ErrInvalidJSON,
		)
	}
	if stderrors.Is(err, io.ErrUnexpectedEOF) {
		return errors.NewParsingError("unexpected end of JSON input", errors.ErrInvalidJSON)
	}
	return errors.NewParsingError("failed to decode JSON", err)
}

// decodeValue reads one complete value from the token stream
func decodeValue(decoder *json.Decoder) (models.Value, error) {
	tok, err := decoder.Token()
	if err != nil {
		return models.Null(), err
	}

	switch t := tok.(type) {
	case json.Delim:
		switch t {
		case '{':
			return decodeObject(decoder)
		case '[':
			return decodeArray(decoder)
		default:
			return models.Null(), fmt.Errorf("unexpected delimiter %q", rune(t))
		}
	case nil:
		return models.Null(), nil
	case bool:
		return models.Bool(t), nil
	case json.Number:
		return models.Number(t), nil
	case string:
		return models.String(t), nil
	default:
		return models.Null(), fmt.Errorf("unexpected token %v", tok)
	}
}

func decodeObject(decoder *json.Decoder) (models.Value, error) {
	obj := models.NewObject()
	for decoder.More() {
		tok, err := decoder.Token()
		if err != nil {
			return models.Null(), err
		}
		key, ok := tok.(string)
		if !ok {
			return models.Null(), fmt.Errorf("object key is %T, want string", tok)
		}
		value, err := decodeValue(decoder)
		if err != nil {
			return models.Null(), unexpectedEOF(err)
		}
		obj.Set(key, value)
	}
	// Closing brace.
	if _, err := decoder.Token(); err != nil {
		return models.Null(), unexpectedEOF(err)
	}
	return models.ObjectValue(obj), nil
}

func decodeArray(decoder *json.Decoder) (models.Value, error) {
	items := []models.Value{}
	for decoder.More() {
		value, err := decodeValue(decoder)
		if err != nil {
			return models.Null(), unexpectedEOF(err)
		}
		items = append(items, value)
	}
	// Closing bracket.
	if _, err := decoder.Token(); err != nil {
		return models.Null(), unexpectedEOF(err)
	}
	return models.Array(items...), nil
}

// An EOF inside a container means truncated input, not empty input.
func unexpectedEOF(err error) error {
	if stderrors.Is(err, io.EOF) {
		return io.ErrUnexpectedEOF
	}
	return err
}

// ParseString parses JSON from a string
func ParseString(jsonString string) (models.Value, error) {
	if strings.TrimSpace(jsonString) == "" {
		return models.Null(), errors.NewInputError("input string is empty", errors.ErrEmptyInput)
	}
	return Parse(strings.NewReader(jsonString))
}

// ParseBytes parses JSON from a byte slice
func ParseBytes(data []byte) (models.Value, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return models.Null(), errors.NewInputError("input is empty", errors.ErrEmptyInput)
	}
	return Parse(bytes.NewReader(data))
}

// ParseFile parses JSON from a file path
func ParseFile(filePath string) (models.Value, error) {
	if strings.TrimSpace(filePath) == "" {
		return models.Null(), errors.NewInputError("file path is empty", errors.ErrInvalidFilePath)
	}
	file, err := os.Open(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return models.Null(), errors.NewInputError(
				fmt.Sprintf("file '%s' not found", filePath),
				errors.ErrFileNotFound,
			)
		}
		return models.Null(), errors.NewInputError(
			fmt.Sprintf("failed to open file '%s'", filePath),
			err,
		)
	}
	defer func() {
		if err := file.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "Error closing file: %v\n", err)
		}
	}()

	stat, err := file.Stat()
	if err != nil {
		return models.Null(), errors.NewInputError(
			fmt.Sprintf("failed to get file stats for '%s'", filePath),
			err,
		)
	}
	if stat.Size() == 0 {
		return models.Null(), errors.NewInputError(
			fmt.Sprintf("input file '%s' is empty", filePath),
			errors.ErrFileEmpty,
		)
	}

	return Parse(file)
}
