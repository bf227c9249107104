package settings

import "fmt"

// Options is a plugin's option bag, as written under the plugin's name in
// a build file.
type Options map[string]interface{}

// Strings returns key as a list of strings. A single string is returned as
// a one-element list; anything else is ignored.
func (o Options) Strings(key string) []string {
	switch v := o[key].(type) {
	case string:
		return []string{v}
	case []string:
		return append([]string(nil), v...)
	case []interface{}:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			} else if item != nil {
				out = append(out, fmt.Sprint(item))
			}
		}
		return out
	default:
		return nil
	}
}

// String returns key as a string, or "" when unset.
func (o Options) String(key string) string {
	switch v := o[key].(type) {
	case nil:
		return ""
	case string:
		return v
	default:
		return fmt.Sprint(v)
	}
}

// Bool returns key as a bool, or false when unset.
func (o Options) Bool(key string) bool {
	v, _ := o[key].(bool)
	return v
}

// merge folds overlay into o: lists are concatenated, anything else is
// overwritten.
func (o Options) merge(overlay Options) {
	for key, value := range overlay {
		existing, ok := o[key].([]interface{})
		incoming, isList := value.([]interface{})
		if ok && isList {
			merged := make([]interface{}, 0, len(existing)+len(incoming))
			merged = append(merged, existing...)
			o[key] = append(merged, incoming...)
			continue
		}
		o[key] = cloneValue(value)
	}
}

func (o Options) clone() Options {
	out := make(Options, len(o))
	for key, value := range o {
		out[key] = cloneValue(value)
	}
	return out
}

func cloneValue(v interface{}) interface{} {
	switch v := v.(type) {
	case []interface{}:
		return append([]interface{}(nil), v...)
	case map[string]interface{}:
		return map[string]interface{}(Options(v).clone())
	default:
		return v
	}
}

// toOptions converts a decoded YAML value into an option bag.
func toOptions(v interface{}) (Options, bool) {
	switch v := v.(type) {
	case map[string]interface{}:
		return Options(v), true
	case Options:
		return v, true
	case nil:
		return Options{}, true
	default:
		return nil, false
	}
}
