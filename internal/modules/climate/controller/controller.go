package controller

import (
	"context"
	"net/http"

	"surfsup-server/internal/modules/climate/types"
)

// ClimateService is what the handlers need from the service layer.
type ClimateService interface {
	Precipitation(ctx context.Context) (types.Precipitation, error)
	Stations(ctx context.Context) ([]string, error)
	TOBS(ctx context.Context) ([]types.TOBSObservation, error)
	TemperatureStats(ctx context.Context, start string, end *string) (types.TemperatureStats, error)
}

type ClimateController interface {
	RegisterRoutes(mux *http.ServeMux)
}

type climateControllerImpl struct {
	service ClimateService
}

func NewClimateController(service ClimateService) ClimateController {
	return &climateControllerImpl{service: service}
}

func (c *climateControllerImpl) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /{$}", c.handleHome)
	mux.HandleFunc("GET "+apiPrefix+"/precipitation", c.handlePrecipitation)
	mux.HandleFunc("GET "+apiPrefix+"/stations", c.handleStations)
	mux.HandleFunc("GET "+apiPrefix+"/tobs", c.handleTOBS)
	mux.HandleFunc("GET "+apiPrefix+"/{start}", c.handleTemperatureStats)
	mux.HandleFunc("GET "+apiPrefix+"/{start}/{end}", c.handleTemperatureStats)
}
