package sim

import (
	"log"
	"strconv"
	"strings"
)

// Named describes an object that has a name.
type Named interface {
	// Name returns the name of the object.
	Name() string
}

// NameMustBeValid panics if the name does not follow the naming convention.
// A name is a dot separated hierarchy of capitalized CamelCase elements, for
// example "Sys.DMA" or "Sys.Mem[0]".
func NameMustBeValid(name string) {
	for _, token := range strings.Split(name, ".") {
		if err := tokenError(token); err != "" {
			log.Panicf("name %q is not valid: %s", name, err)
		}
	}
}

func tokenError(token string) string {
	elem, rest, hasIndex := strings.Cut(token, "[")

	if elem == "" {
		return "name element must not be empty"
	}

	if strings.ContainsAny(elem, "_\"'- ]") {
		return "name element must only contain letters and digits"
	}

	if elem[0] < 'A' || elem[0] > 'Z' {
		return "name element must start with a capital letter"
	}

	if !hasIndex {
		return ""
	}

	for _, idx := range strings.Split(rest, "[") {
		num, ok := strings.CutSuffix(idx, "]")
		if !ok {
			return "name bracket must match"
		}

		if _, err := strconv.Atoi(num); err != nil {
			return "name index must be integer"
		}
	}

	return ""
}

// BuildName builds a name from a parent name and an element name.
func BuildName(parentName, elementName string) string {
	if parentName == "" {
		return elementName
	}

	return parentName + "." + elementName
}

// BuildNameWithIndex builds a name from a parent name, an element name and an
// index.
func BuildNameWithIndex(parentName, elementName string, index int) string {
	return BuildName(parentName, elementName+"["+strconv.Itoa(index)+"]")
}
