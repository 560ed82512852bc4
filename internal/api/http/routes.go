package httpapi

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/i474232898/fishing-forecast/internal/fishing"
	"github.com/i474232898/fishing-forecast/internal/fishing/providers"
	"github.com/i474232898/fishing-forecast/internal/store"
)

const dateLayout = "2006-01-02"

var validate = validator.New()

// FeedbackRecorder persists advice feedback.
type FeedbackRecorder interface {
	Insert(ctx context.Context, f store.Feedback) (int64, error)
	Summary(ctx context.Context) (store.FeedbackSummary, error)
}

// Deps are the handlers' collaborators. Feedback and Tracker are optional.
type Deps struct {
	Service  *fishing.Service
	Feedback FeedbackRecorder
	Tracker  *fishing.RequestTracker
}

// RegisterRoutes wires the HTTP handlers into the Fiber app.
func RegisterRoutes(app *fiber.App, deps Deps) {
	v1 := app.Group("/api/v1")

	v1.Get("/conditions", func(c *fiber.Ctx) error {
		req, client, err := parseConditionsQuery(c)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		var result fishing.ConditionsResult
		err = deps.track(c, client, func(ctx context.Context) error {
			var err error
			result, err = deps.Service.GetConditions(ctx, req)
			return err
		})
		if err != nil {
			return err
		}
		return c.JSON(result)
	})

	v1.Get("/advice", func(c *fiber.Ctx) error {
		req, client, err := parseConditionsQuery(c)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		var rec fishing.Recommendation
		err = deps.track(c, client, func(ctx context.Context) error {
			var err error
			rec, err = deps.Service.Advise(ctx, req)
			return err
		})
		if err != nil {
			return err
		}
		return c.JSON(rec)
	})

	v1.Get("/species", func(c *fiber.Ctx) error {
		location := strings.TrimSpace(c.Query("location"))
		if location == "" {
			return fiber.NewError(fiber.StatusBadRequest, "location query parameter is required")
		}

		return c.JSON(fiber.Map{
			"location": location,
			"species":  deps.Service.RegionalSpecies(c.UserContext(), location),
		})
	})

	v1.Get("/geocode", func(c *fiber.Ctx) error {
		q := strings.TrimSpace(c.Query("q"))
		if _, _, err := providers.ParseCityState(q); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		coord, err := deps.Service.Geocode(c.UserContext(), q)
		if err != nil {
			if errors.Is(err, providers.ErrNoGeocodeResult) {
				return fiber.NewError(fiber.StatusNotFound, "no coordinates found for "+q)
			}
			return fiber.NewError(fiber.StatusBadGateway, "failed to geocode location")
		}
		return c.JSON(fiber.Map{
			"query":      q,
			"coordinate": coord,
		})
	})

	v1.Post("/feedback", func(c *fiber.Ctx) error {
		if deps.Feedback == nil {
			return fiber.NewError(fiber.StatusServiceUnavailable, "feedback storage is not configured")
		}

		var body feedbackBody
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid feedback body")
		}
		if err := validate.Struct(body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		id, err := deps.Feedback.Insert(c.UserContext(), body.toFeedback())
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "failed to store feedback")
		}
		return c.Status(fiber.StatusCreated).JSON(fiber.Map{"id": id})
	})

	v1.Get("/feedback/summary", func(c *fiber.Ctx) error {
		if deps.Feedback == nil {
			return fiber.NewError(fiber.StatusServiceUnavailable, "feedback storage is not configured")
		}

		sum, err := deps.Feedback.Summary(c.UserContext())
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "failed to summarize feedback")
		}
		return c.JSON(sum)
	})
}

// track runs fn under the client's request slot when a client id is given.
// A request replaced by a newer one from the same client answers 409.
func (d Deps) track(c *fiber.Ctx, client string, fn func(ctx context.Context) error) error {
	ctx := c.UserContext()
	if client == "" || d.Tracker == nil {
		return mapServiceError(fn(ctx))
	}

	ctx, tk := d.Tracker.Begin(ctx, client)
	err := fn(ctx)
	if !d.Tracker.Finish(tk) {
		return fiber.NewError(fiber.StatusConflict, "request superseded by a newer one")
	}
	return mapServiceError(err)
}

func mapServiceError(err error) error {
	if err == nil {
		return nil
	}
	if fishing.IsFatal(err) {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	return fiber.NewError(fiber.StatusInternalServerError, "failed to assemble conditions")
}

// conditionsQuery holds query parameters shared by the conditions and advice endpoints.
type conditionsQuery struct {
	Lat         *float64 `validate:"omitempty,latitude"`
	Lon         *float64 `validate:"omitempty,longitude"`
	Date        string   `validate:"required,datetime=2006-01-02"`
	TimeOfDay   string   `validate:"required,oneof=Morning Afternoon Evening Night"`
	Species     string   `validate:"max=64"`
	FishingType string   `validate:"required,max=64"`
	Location    string   `validate:"max=128"`
	Client      string   `validate:"max=128"`
}

func parseConditionsQuery(c *fiber.Ctx) (fishing.ConditionsRequest, string, error) {
	var q conditionsQuery

	var err error
	if q.Lat, err = optionalFloat(c.Query("lat")); err != nil {
		return fishing.ConditionsRequest{}, "", errors.New("lat must be a number")
	}
	if q.Lon, err = optionalFloat(c.Query("lon")); err != nil {
		return fishing.ConditionsRequest{}, "", errors.New("lon must be a number")
	}
	q.Date = c.Query("date")
	q.TimeOfDay = c.Query("timeOfDay")
	q.Species = strings.TrimSpace(c.Query("species"))
	q.FishingType = strings.TrimSpace(c.Query("fishingType"))
	q.Location = strings.TrimSpace(c.Query("location"))
	q.Client = strings.TrimSpace(c.Query("client"))

	if err := validate.Struct(q); err != nil {
		return fishing.ConditionsRequest{}, "", err
	}

	date, err := time.Parse(dateLayout, q.Date)
	if err != nil {
		return fishing.ConditionsRequest{}, "", errors.New("date must be YYYY-MM-DD")
	}

	req := fishing.ConditionsRequest{
		TargetDate:   date,
		TimeOfDay:    fishing.TimeOfDay(q.TimeOfDay),
		Species:      q.Species,
		FishingType:  q.FishingType,
		LocationName: q.Location,
	}
	// A half-specified point is as good as none; the service rejects it.
	if q.Lat != nil && q.Lon != nil {
		req.Coordinate = &fishing.Coordinate{Latitude: *q.Lat, Longitude: *q.Lon}
	}
	return req, q.Client, nil
}

func optionalFloat(s string) (*float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

type feedbackBody struct {
	UserID     string               `json:"userId" validate:"required,max=128"`
	Species    string               `json:"species" validate:"max=64"`
	CityState  string               `json:"cityState" validate:"max=128"`
	Date       string               `json:"date" validate:"required,datetime=2006-01-02"`
	TimeOfDay  string               `json:"timeOfDay" validate:"required,oneof=Morning Afternoon Evening Night"`
	Advice     fishing.AdviceResult `json:"advice"`
	WasHelpful *bool                `json:"wasHelpful" validate:"required"`
}

func (b feedbackBody) toFeedback() store.Feedback {
	return store.Feedback{
		UserID:     b.UserID,
		Species:    b.Species,
		CityState:  b.CityState,
		Date:       b.Date,
		TimeOfDay:  fishing.TimeOfDay(b.TimeOfDay),
		Advice:     b.Advice,
		WasHelpful: *b.WasHelpful,
	}
}
