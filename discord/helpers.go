package discord

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"

	"github.com/bwmarrin/discordgo"
)

// optionTag is the parsed form of a `discord:"optional,description=...,choices=a|A;b|B,default=a"` tag.
type optionTag struct {
	optional    bool
	description string
	choices     []*discordgo.ApplicationCommandOptionChoice
	def         string
}

func parseOptionTag(tag string) optionTag {
	var ot optionTag
	for _, part := range strings.Split(tag, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		key, value, _ := strings.Cut(part, "=")
		switch strings.TrimSpace(key) {
		case "optional":
			ot.optional = true
		case "description":
			ot.description = strings.TrimSpace(value)
		case "choices":
			ot.choices = parseChoices(value)
		case "default":
			ot.def = strings.TrimSpace(value)
		}
	}
	return ot
}

// parseChoices turns "val1|Label1;val2" into option choices. A value without a
// label is its own label.
func parseChoices(s string) []*discordgo.ApplicationCommandOptionChoice {
	var choices []*discordgo.ApplicationCommandOptionChoice
	for _, pair := range strings.Split(s, ";") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		value, name, ok := strings.Cut(pair, "|")
		if !ok {
			name = value
		}
		choices = append(choices, &discordgo.ApplicationCommandOptionChoice{
			Name:  name,
			Value: value,
		})
	}
	return choices
}

// setDefaults fills zero-valued fields of the struct req points to from the
// "default" key of their discord tag.
func setDefaults(req interface{}) error {
	v := reflect.ValueOf(req)
	if v.Kind() != reflect.Ptr || v.Elem().Kind() != reflect.Struct {
		return fmt.Errorf("setDefaults: req is not a pointer to struct")
	}
	v = v.Elem()
	t := v.Type()

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		fieldVal := v.Field(i)
		if !fieldVal.CanSet() || !fieldVal.IsZero() {
			continue
		}
		ot := parseOptionTag(field.Tag.Get("discord"))
		if ot.def == "" {
			continue
		}
		converted, err := convertType(ot.def, field.Type)
		if err != nil {
			return fmt.Errorf("default for %s: %w", field.Name, err)
		}
		fieldVal.Set(converted)
	}

	return nil
}

// convertType converts a string value to a reflect.Value of type t for basic types.
func convertType(val string, t reflect.Type) (reflect.Value, error) {
	switch t.Kind() {
	case reflect.String:
		return reflect.ValueOf(val).Convert(t), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		i, err := strconv.ParseInt(val, 10, 64)
		if err != nil {
			return reflect.Value{}, err
		}
		return reflect.ValueOf(i).Convert(t), nil
	case reflect.Float32, reflect.Float64:
		f, err := strconv.ParseFloat(val, 64)
		if err != nil {
			return reflect.Value{}, err
		}
		return reflect.ValueOf(f).Convert(t), nil
	case reflect.Bool:
		b, err := strconv.ParseBool(val)
		if err != nil {
			return reflect.Value{}, err
		}
		return reflect.ValueOf(b).Convert(t), nil
	default:
		return reflect.Value{}, fmt.Errorf("unsupported type for default conversion: %s", t.Kind())
	}
}

func optionType(k reflect.Kind) discordgo.ApplicationCommandOptionType {
	switch k {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return discordgo.ApplicationCommandOptionInteger
	case reflect.Float32, reflect.Float64:
		return discordgo.ApplicationCommandOptionNumber
	case reflect.Bool:
		return discordgo.ApplicationCommandOptionBoolean
	default:
		return discordgo.ApplicationCommandOptionString
	}
}

// structToCommandOptions derives the slash-command options from a request
// struct: one option per exported field, named after the lowercased field.
// A nil prototype (or an empty struct) has no options.
func structToCommandOptions(req Request) ([]*discordgo.ApplicationCommandOption, error) {
	if req == nil {
		return nil, nil
	}
	t := reflect.TypeOf(req)
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct {
		return nil, fmt.Errorf("request is not a struct")
	}

	var options []*discordgo.ApplicationCommandOption
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		if !field.IsExported() {
			continue
		}
		name := strings.ToLower(field.Name)
		ot := parseOptionTag(field.Tag.Get("discord"))

		description := ot.description
		if description == "" {
			description = "Auto-generated option for " + name
		}

		options = append(options, &discordgo.ApplicationCommandOption{
			Type:        optionType(field.Type.Kind()),
			Name:        name,
			Description: description,
			Required:    !ot.optional && ot.def == "",
			Choices:     ot.choices,
		})
	}

	return options, nil
}
