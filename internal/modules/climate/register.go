package climate

import (
	"database/sql"
	"net/http"

	"surfsup-server/internal/db"
	"surfsup-server/internal/modules/climate/controller"
	"surfsup-server/internal/modules/climate/repository"
	"surfsup-server/internal/modules/climate/service"
)

func RegisterFeature(mux *http.ServeMux, pool *sql.DB, dialect db.Dialect) {
	climateStore := repository.NewStore(pool, dialect)
	climateService := service.NewService(climateStore)
	climateController := controller.NewClimateController(climateService)
	climateController.RegisterRoutes(mux)
}
