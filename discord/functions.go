package discord

import (
	"context"

	"github.com/bwmarrin/discordgo"
	"github.com/mitchellh/mapstructure"
)

// Request is a blank interface for the command request definitions.
type Request interface{}

// BotFunctionI is the common interface for all slash commands.
type BotFunctionI interface {
	GetName() string
	GetDescription() string
	GetRequestPrototype() Request
	// HandleInteraction decodes interaction data into a request struct and calls the handler.
	// It returns the response data that can be sent directly to Discord.
	HandleInteraction(ctx context.Context, data *discordgo.ApplicationCommandInteractionData) (*discordgo.InteractionResponseData, error)
}

// GenericBotFunction is a generic implementation of BotFunctionI.
type GenericBotFunction[T Request] struct {
	// Name is the command name.
	Name string
	// Description is shown in the Discord command picker.
	Description string
	// RequestPrototype is an instance of the request type (typically the zero value)
	// used for reflection to generate command options.
	RequestPrototype T
	// Handler is the function to execute for the command.
	Handler func(context.Context, T) (*discordgo.InteractionResponseData, error)
}

func (bf *GenericBotFunction[T]) GetName() string {
	return bf.Name
}

func (bf *GenericBotFunction[T]) GetDescription() string {
	if bf.Description == "" {
		return "Auto-generated command for " + bf.Name
	}
	return bf.Description
}

func (bf *GenericBotFunction[T]) GetRequestPrototype() Request {
	return bf.RequestPrototype
}

// HandleInteraction builds a T from the interaction options with mapstructure,
// fills defaults from the struct tags and calls the handler.
func (bf *GenericBotFunction[T]) HandleInteraction(ctx context.Context, data *discordgo.ApplicationCommandInteractionData) (*discordgo.InteractionResponseData, error) {
	var req T

	optsMap := make(map[string]interface{})
	if data != nil {
		for _, opt := range data.Options {
			optsMap[opt.Name] = opt.Value
		}
	}

	// Option names are the lowercased field names, and mapstructure matches
	// keys to field names case-insensitively. The "discord" tag is left alone
	// here because its first element is a flag, not a name.
	decoderConfig := mapstructure.DecoderConfig{
		Result:           &req,
		WeaklyTypedInput: true, // Discord sends numbers as float64.
	}
	decoder, err := mapstructure.NewDecoder(&decoderConfig)
	if err != nil {
		return nil, err
	}
	if err := decoder.Decode(optsMap); err != nil {
		return nil, err
	}

	if err := setDefaults(&req); err != nil {
		return nil, err
	}

	return bf.Handler(ctx, req)
}

// NewBotFunction creates a slash command backed by handler. The zero value of T
// is kept as a prototype: its fields become the command options on registration
// and interaction options are decoded back into it on every call.
//
// Fields can carry a "discord" struct tag with comma-separated keys:
//
//   - optional:    the option is not required.
//   - description: text shown for the option (description=...).
//   - choices:     semicolon-separated "value|Label" pairs.
//   - default:     value assigned when the option is left out.
func NewBotFunction[T Request](name, description string, handler func(context.Context, T) (*discordgo.InteractionResponseData, error)) BotFunctionI {
	var reqPrototype T
	return &GenericBotFunction[T]{
		Name:             name,
		Description:      description,
		RequestPrototype: reqPrototype,
		Handler:          handler,
	}
}
