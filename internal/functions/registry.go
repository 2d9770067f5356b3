// Package functions implements the conversational function registry: the
// closed set of structured calls the model can make during a call.
package functions

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/goldenspoon/voiceline/internal/booking"
	"github.com/goldenspoon/voiceline/internal/config"
	"github.com/goldenspoon/voiceline/internal/llm"
	"github.com/goldenspoon/voiceline/internal/model"
	"github.com/goldenspoon/voiceline/pkg/logger"
	"github.com/goldenspoon/voiceline/pkg/metrics"
)

// Structured result codes reported back to the model.
const (
	CodeInvalidArguments = "invalid_arguments"
	CodeSlotUnavailable  = "slot_unavailable"
	CodeUnknownInfoType  = "unknown_info_type"
	CodeUnknownFunction  = "unknown_function"
)

type handlerFunc func(ctx context.Context, args json.RawMessage) *model.FunctionCallResult

// Registry maps function names to handlers. Dispatch never returns a Go
// error for argument or semantic problems: those come back as structured
// error results so the model can correct itself and the conversation
// continues.
type Registry struct {
	store      *booking.Store
	restaurant config.Restaurant
	logger     *logger.Logger

	handlers map[string]handlerFunc
}

// NewRegistry creates the registry with the three reservation functions
// registered.
func NewRegistry(store *booking.Store, restaurant config.Restaurant, log *logger.Logger) *Registry {
	r := &Registry{
		store:      store,
		restaurant: restaurant,
		logger:     log,
	}
	r.handlers = map[string]handlerFunc{
		"check_availability":  r.checkAvailability,
		"create_booking":      r.createBooking,
		"get_restaurant_info": r.getRestaurantInfo,
	}
	return r
}

// Dispatch invokes the named function with the given JSON arguments.
func (r *Registry) Dispatch(ctx context.Context, name string, args json.RawMessage) *model.FunctionCallResult {
	h, ok := r.handlers[name]
	if !ok {
		metrics.RecordFunctionCall(name, "unknown")
		return errorResult(CodeUnknownFunction, fmt.Sprintf("no function named %q", name))
	}

	res := h(ctx, args)
	metrics.RecordFunctionCall(name, string(res.Status))
	return res
}

type availabilityArgs struct {
	Date   string `json:"date"`
	Time   string `json:"time"`
	Guests int    `json:"guests"`
}

func (r *Registry) checkAvailability(ctx context.Context, raw json.RawMessage) *model.FunctionCallResult {
	var args availabilityArgs
	if err := json.Unmarshal(raw, &args); err != nil {
		return errorResult(CodeInvalidArguments, "arguments must be a JSON object with date, time and guests")
	}
	if args.Date == "" || args.Time == "" {
		return errorResult(CodeInvalidArguments, "date and time are required")
	}
	if args.Guests <= 0 || args.Guests > r.restaurant.MaxPartySize {
		return errorResult(CodeInvalidArguments,
			fmt.Sprintf("guests must be between 1 and %d", r.restaurant.MaxPartySize))
	}

	remaining, available := r.store.Availability(args.Date, args.Time, args.Guests)

	r.logger.Info("checked availability",
		zap.String("date", args.Date),
		zap.String("time", args.Time),
		zap.Int("guests", args.Guests),
		zap.Bool("available", available),
	)

	message := fmt.Sprintf("No table for %d available on %s at %s", args.Guests, args.Date, args.Time)
	if available {
		message = fmt.Sprintf("Table for %d is available on %s at %s", args.Guests, args.Date, args.Time)
	}

	return okResult(map[string]any{
		"available": available,
		"remaining": remaining,
		"date":      args.Date,
		"time":      args.Time,
		"guests":    args.Guests,
		"message":   message,
	})
}

type bookingArgs struct {
	Name            string `json:"name"`
	Phone           string `json:"phone"`
	Date            string `json:"date"`
	Time            string `json:"time"`
	Guests          int    `json:"guests"`
	SpecialRequests string `json:"special_requests"`
}

func (r *Registry) createBooking(ctx context.Context, raw json.RawMessage) *model.FunctionCallResult {
	var args bookingArgs
	if err := json.Unmarshal(raw, &args); err != nil {
		return errorResult(CodeInvalidArguments, "arguments must be a JSON object with name, phone, date, time and guests")
	}
	if args.Name == "" || args.Phone == "" || args.Date == "" || args.Time == "" {
		return errorResult(CodeInvalidArguments, "name, phone, date and time are required")
	}
	if args.Guests <= 0 || args.Guests > r.restaurant.MaxPartySize {
		return errorResult(CodeInvalidArguments,
			fmt.Sprintf("guests must be between 1 and %d", r.restaurant.MaxPartySize))
	}

	b, remaining, err := r.store.Reserve(args.Name, args.Phone, args.Date, args.Time, args.Guests, args.SpecialRequests)
	if errors.Is(err, booking.ErrSlotUnavailable) {
		return &model.FunctionCallResult{
			Status: model.FunctionError,
			Code:   CodeSlotUnavailable,
			Payload: map[string]any{
				"remaining": remaining,
				"message": fmt.Sprintf("Only %d seats remain on %s at %s, cannot seat %d",
					remaining, args.Date, args.Time, args.Guests),
			},
		}
	}

	metrics.BookingsTotal.Inc()
	r.logger.Info("created booking",
		zap.String("confirmation_id", b.ConfirmationID),
		zap.String("date", b.Date),
		zap.String("time", b.Time),
		zap.Int("guests", b.Guests),
	)

	return okResult(map[string]any{
		"confirmation_id": b.ConfirmationID,
		"status":          "confirmed",
		"remaining":       remaining,
		"message": fmt.Sprintf("Booking confirmed for %s on %s at %s for %d guests. Confirmation number: %s",
			b.Name, b.Date, b.Time, b.Guests, b.ConfirmationID),
	})
}

type infoArgs struct {
	InfoType string `json:"info_type"`
}

func (r *Registry) getRestaurantInfo(ctx context.Context, raw json.RawMessage) *model.FunctionCallResult {
	var args infoArgs
	if err := json.Unmarshal(raw, &args); err != nil {
		return errorResult(CodeInvalidArguments, "arguments must be a JSON object with info_type")
	}

	var info string
	switch args.InfoType {
	case "general":
		info = r.restaurant.General
	case "hours":
		info = r.restaurant.Hours
	case "menu":
		info = r.restaurant.Menu
	case "location":
		info = r.restaurant.Location
	case "capacity":
		info = r.restaurant.Capacity
	default:
		return errorResult(CodeUnknownInfoType, fmt.Sprintf("no information for %q", args.InfoType))
	}

	return okResult(map[string]any{"info": info})
}

func okResult(payload map[string]any) *model.FunctionCallResult {
	return &model.FunctionCallResult{
		Status:  model.FunctionOK,
		Payload: payload,
	}
}

func errorResult(code, message string) *model.FunctionCallResult {
	return &model.FunctionCallResult{
		Status:  model.FunctionError,
		Code:    code,
		Payload: map[string]any{"message": message},
	}
}

// Definitions returns the tool declarations supplied to the model at
// session start.
func (r *Registry) Definitions() []llm.ToolDefinition {
	return []llm.ToolDefinition{
		{
			Name:        "check_availability",
			Description: "Check if tables are available for a specific date, time, and party size",
			Parameters: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"date": map[string]any{
						"type":        "string",
						"description": "Date in YYYY-MM-DD format",
					},
					"time": map[string]any{
						"type":        "string",
						"description": "Time in HH:MM format",
					},
					"guests": map[string]any{
						"type":        "integer",
						"description": fmt.Sprintf("Number of guests (1-%d)", r.restaurant.MaxPartySize),
					},
				},
				"required": []string{"date", "time", "guests"},
			},
		},
		{
			Name:        "create_booking",
			Description: "Create a new table reservation after confirming availability",
			Parameters: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"name": map[string]any{
						"type":        "string",
						"description": "Customer's full name",
					},
					"phone": map[string]any{
						"type":        "string",
						"description": "Customer's phone number",
					},
					"date": map[string]any{
						"type":        "string",
						"description": "Reservation date in YYYY-MM-DD format",
					},
					"time": map[string]any{
						"type":        "string",
						"description": "Reservation time in HH:MM format",
					},
					"guests": map[string]any{
						"type":        "integer",
						"description": "Number of guests",
					},
					"special_requests": map[string]any{
						"type":        "string",
						"description": "Any special requests (dietary restrictions, occasion, seating preference)",
					},
				},
				"required": []string{"name", "phone", "date", "time", "guests"},
			},
		},
		{
			Name:        "get_restaurant_info",
			Description: "Get information about the restaurant",
			Parameters: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"info_type": map[string]any{
						"type":        "string",
						"enum":        []string{"general", "hours", "menu", "location", "capacity"},
						"description": "Type of information requested",
					},
				},
				"required": []string{"info_type"},
			},
		},
	}
}
