package rest

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	enTranslations "github.com/go-playground/validator/v10/translations/en"
	"github.com/lintang-b-s/routex/pkg/datastructure"
	"github.com/lintang-b-s/routex/pkg/engine/routingalgorithm"
	"github.com/lintang-b-s/routex/pkg/geo"
	"github.com/lintang-b-s/routex/pkg/server/rest/service"
	"go.uber.org/zap"
)

// NavigationHandler serves the OSRM-style url surface.
type NavigationHandler struct {
	svc            *service.NavigationService
	log            *zap.Logger
	requestTimeout time.Duration

	validate  *validator.Validate
	translate ut.Translator
}

const DefaultRequestTimeout = 30 * time.Second

func NavigatorRouter(r *chi.Mux, svc *service.NavigationService, log *zap.Logger, timeout time.Duration) {
	if timeout <= 0 {
		timeout = DefaultRequestTimeout
	}

	english := en.New()
	uni := ut.New(english, english)
	translate, _ := uni.GetTranslator("en")
	validate := validator.New()
	_ = enTranslations.RegisterDefaultTranslations(validate, translate)

	handler := &NavigationHandler{
		svc:            svc,
		log:            log,
		requestTimeout: timeout,
		validate:       validate,
		translate:      translate,
	}

	r.Group(func(r chi.Router) {
		r.Get("/route/v1/{profile}/{coords}", handler.Route)
		r.Get("/table/v1/{profile}/{coords}", handler.Table)
		r.Get("/nearest/v1/{profile}/{coords}", handler.Nearest)
		r.Get("/match/v1/{profile}/{coords}", handler.Match)
		r.Get("/trip/v1/{profile}/{coords}", handler.Trip)
	})
}

// validatedWaypoint mirrors the parsed waypoint for range validation.
type validatedWaypoint struct {
	Lat float64 `validate:"gte=-90,lte=90"`
	Lon float64 `validate:"gte=-180,lte=180"`
}

func (h *NavigationHandler) validateWaypoints(waypoints []service.Waypoint) error {
	for _, w := range waypoints {
		if err := h.validate.Struct(validatedWaypoint{Lat: w.Lat, Lon: w.Lon}); err != nil {
			var verrs validator.ValidationErrors
			if errors.As(err, &verrs) && len(verrs) > 0 {
				return &ParseError{Position: 0, Message: verrs[0].Translate(h.translate)}
			}
			return err
		}
	}
	return nil
}

type ErrResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`

	HTTPStatusCode int `json:"-"`
}

func (e *ErrResponse) Render(w http.ResponseWriter, r *http.Request) error {
	render.Status(r, e.HTTPStatusCode)
	return nil
}

// renderError maps the service error taxonomy onto (code, message) pairs:
// client errors 400, server errors 500.
func (h *NavigationHandler) renderError(w http.ResponseWriter, r *http.Request, err error) {
	var parseErr *ParseError
	resp := &ErrResponse{Code: "Exception", Message: err.Error(), HTTPStatusCode: http.StatusInternalServerError}

	switch {
	case errors.As(err, &parseErr), errors.Is(err, service.ErrInvalidOptions):
		resp.Code = "InvalidOptions"
		resp.HTTPStatusCode = http.StatusBadRequest
	case errors.Is(err, service.ErrNoSegment):
		resp.Code = "NoSegment"
		resp.HTTPStatusCode = http.StatusBadRequest
	case errors.Is(err, service.ErrNoRoute), errors.Is(err, routingalgorithm.ErrNoRoute):
		resp.Code = "NoRoute"
		resp.HTTPStatusCode = http.StatusBadRequest
	case errors.Is(err, service.ErrTooBig):
		resp.Code = "TooBig"
		resp.HTTPStatusCode = http.StatusBadRequest
	case errors.Is(err, routingalgorithm.ErrCancelled), errors.Is(err, context.DeadlineExceeded):
		// a timed-out request fails whole, never partially
		resp.Code = "NoRoute"
		resp.HTTPStatusCode = http.StatusBadRequest
	case errors.Is(err, service.ErrDataMissing):
		resp.Code = "DataMissing"
		resp.HTTPStatusCode = http.StatusInternalServerError
	default:
		h.log.Error("request failed", zap.Error(err))
	}
	render.Render(w, r, resp)
}

type maneuverResponse struct {
	Location      [2]float64 `json:"location"`
	BearingBefore float64    `json:"bearing_before"`
	BearingAfter  float64    `json:"bearing_after"`
	Type          string     `json:"type"`
	Modifier      string     `json:"modifier,omitempty"`
	Exit          int        `json:"exit,omitempty"`
}

type stepResponse struct {
	Distance     float64          `json:"distance"`
	Duration     float64          `json:"duration"`
	Name         string           `json:"name"`
	Ref          string           `json:"ref,omitempty"`
	Destinations string           `json:"destinations,omitempty"`
	RotaryName   string           `json:"rotary_name,omitempty"`
	Mode         string           `json:"mode"`
	Maneuver     maneuverResponse `json:"maneuver"`
	Geometry     string           `json:"geometry"`
}

type legResponse struct {
	Distance float64        `json:"distance"`
	Duration float64        `json:"duration"`
	Steps    []stepResponse `json:"steps"`
}

type routeResponseBody struct {
	Distance float64       `json:"distance"`
	Duration float64       `json:"duration"`
	Geometry interface{}   `json:"geometry"`
	Legs     []legResponse `json:"legs"`
}

type waypointResponse struct {
	Location [2]float64 `json:"location"`
	Distance float64    `json:"distance"`
	Name     string     `json:"name,omitempty"`
	Hint     string     `json:"hint,omitempty"`
}

type routeResponse struct {
	Code      string              `json:"code"`
	Routes    []routeResponseBody `json:"routes"`
	Waypoints []waypointResponse  `json:"waypoints"`
}

func (rr *routeResponse) Render(w http.ResponseWriter, r *http.Request) error {
	return nil
}

func maneuverType(instruction datastructure.TurnInstruction, waypoint datastructure.WaypointType) (string, string) {
	switch waypoint {
	case datastructure.WAYPOINT_TYPE_DEPART:
		return "depart", modifierString(instruction.Modifier)
	case datastructure.WAYPOINT_TYPE_ARRIVE:
		return "arrive", modifierString(instruction.Modifier)
	}
	return instruction.Type.String(), modifierString(instruction.Modifier)
}

func modifierString(m datastructure.DirectionModifier) string {
	return m.String()
}

func renderGeometry(coords []datastructure.Coordinate, opts service.RouteOptions) interface{} {
	switch opts.Overview {
	case "false":
		return nil
	case "simplified":
		coords = geo.RamerDouglasPeucker(coords)
	}
	if opts.GeometryFormat == "geojson" {
		line := make([][2]float64, len(coords))
		for i, c := range coords {
			line[i] = [2]float64{c.LonDeg(), c.LatDeg()}
		}
		return map[string]interface{}{"type": "LineString", "coordinates": line}
	}
	return datastructure.RenderPath(coords)
}

func (h *NavigationHandler) buildRouteResponse(result *service.RouteResult, opts service.RouteOptions, checksum uint32) *routeResponse {
	body := routeResponseBody{
		Distance: result.Distance,
		Duration: result.Duration,
		Geometry: renderGeometry(result.Geometry, opts),
	}
	for _, leg := range result.Legs {
		legResp := legResponse{Distance: leg.Distance, Duration: leg.Duration, Steps: []stepResponse{}}
		for _, step := range leg.Steps {
			manType, manModifier := maneuverType(step.Maneuver.Instruction, step.Maneuver.WaypointType)
			legResp.Steps = append(legResp.Steps, stepResponse{
				Distance:     step.Distance,
				Duration:     step.Duration,
				Name:         step.Name,
				Ref:          step.Ref,
				Destinations: step.Destinations,
				RotaryName:   step.RotaryName,
				Mode:         step.Mode.String(),
				Maneuver: maneuverResponse{
					Location:      [2]float64{step.Maneuver.Location.LonDeg(), step.Maneuver.Location.LatDeg()},
					BearingBefore: step.Maneuver.BearingBefore,
					BearingAfter:  step.Maneuver.BearingAfter,
					Type:          manType,
					Modifier:      manModifier,
					Exit:          step.Maneuver.ExitCount,
				},
				Geometry: datastructure.RenderPath(leg.Geometry[step.GeometryBegin:min(step.GeometryEnd, len(leg.Geometry))]),
			})
		}
		body.Legs = append(body.Legs, legResp)
	}

	resp := &routeResponse{Code: "Ok", Routes: []routeResponseBody{body}}
	for _, phantom := range result.Waypoints {
		p := phantom
		resp.Waypoints = append(resp.Waypoints, waypointResponse{
			Location: [2]float64{p.Location.LonDeg(), p.Location.LatDeg()},
			Distance: p.EdgeDistance,
			Hint:     service.EncodeHint(&p, checksum),
		})
	}
	return resp
}

func (h *NavigationHandler) parseRequest(r *http.Request) ([]service.Waypoint, service.RouteOptions, error) {
	waypoints, err := parseCoordinates(chi.URLParam(r, "coords"))
	if err != nil {
		return nil, service.RouteOptions{}, err
	}
	if err := h.validateWaypoints(waypoints); err != nil {
		return nil, service.RouteOptions{}, err
	}

	query := r.URL.Query()
	if err := applyBearings(waypoints, query.Get("bearings")); err != nil {
		return nil, service.RouteOptions{}, err
	}
	if err := applyRadiuses(waypoints, query.Get("radiuses")); err != nil {
		return nil, service.RouteOptions{}, err
	}
	applyHints(waypoints, query.Get("hints"))

	opts, err := parseRouteOptions(query)
	if err != nil {
		return nil, service.RouteOptions{}, err
	}
	return waypoints, opts, nil
}

func (h *NavigationHandler) Route(w http.ResponseWriter, r *http.Request) {
	waypoints, opts, err := h.parseRequest(r)
	if err != nil {
		h.renderError(w, r, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.requestTimeout)
	defer cancel()

	result, err := h.svc.Route(ctx, waypoints, opts)
	if err != nil {
		h.renderError(w, r, err)
		return
	}
	render.Render(w, r, h.buildRouteResponse(result, opts, h.svc.Checksum()))
}

type tableResponse struct {
	Code         string             `json:"code"`
	Durations    [][]float64        `json:"durations"`
	Sources      []waypointResponse `json:"sources"`
	Destinations []waypointResponse `json:"destinations"`
}

func (tr *tableResponse) Render(w http.ResponseWriter, r *http.Request) error {
	return nil
}

func (h *NavigationHandler) Table(w http.ResponseWriter, r *http.Request) {
	waypoints, _, err := h.parseRequest(r)
	if err != nil {
		h.renderError(w, r, err)
		return
	}
	query := r.URL.Query()
	sources, err := parseIndexList(query.Get("sources"))
	if err != nil {
		h.renderError(w, r, err)
		return
	}
	destinations, err := parseIndexList(query.Get("destinations"))
	if err != nil {
		h.renderError(w, r, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.requestTimeout)
	defer cancel()

	durations, snapped, err := h.svc.Table(ctx, waypoints, sources, destinations)
	if err != nil {
		h.renderError(w, r, err)
		return
	}

	resp := &tableResponse{Code: "Ok", Durations: durations}
	sourceIdx := sources
	if sourceIdx == nil {
		sourceIdx = allIndices(len(snapped))
	}
	destinationIdx := destinations
	if destinationIdx == nil {
		destinationIdx = allIndices(len(snapped))
	}
	for _, idx := range sourceIdx {
		resp.Sources = append(resp.Sources, phantomWaypoint(snapped[idx]))
	}
	for _, idx := range destinationIdx {
		resp.Destinations = append(resp.Destinations, phantomWaypoint(snapped[idx]))
	}
	render.Render(w, r, resp)
}

func phantomWaypoint(p datastructure.PhantomNode) waypointResponse {
	return waypointResponse{
		Location: [2]float64{p.Location.LonDeg(), p.Location.LatDeg()},
		Distance: p.EdgeDistance,
	}
}

type nearestResponse struct {
	Code      string             `json:"code"`
	Waypoints []waypointResponse `json:"waypoints"`
}

func (nr *nearestResponse) Render(w http.ResponseWriter, r *http.Request) error {
	return nil
}

func (h *NavigationHandler) Nearest(w http.ResponseWriter, r *http.Request) {
	waypoints, _, err := h.parseRequest(r)
	if err != nil {
		h.renderError(w, r, err)
		return
	}
	if len(waypoints) != 1 {
		h.renderError(w, r, &ParseError{Position: 0, Message: "nearest takes exactly one coordinate"})
		return
	}

	k := 1
	if raw := r.URL.Query().Get("number"); raw != "" {
		if parsed, err := parsePositiveInt(raw); err == nil {
			k = parsed
		}
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.requestTimeout)
	defer cancel()

	results, err := h.svc.Nearest(ctx, waypoints[0], k)
	if err != nil {
		h.renderError(w, r, err)
		return
	}

	resp := &nearestResponse{Code: "Ok"}
	for _, result := range results {
		resp.Waypoints = append(resp.Waypoints, waypointResponse{
			Location: [2]float64{result.Phantom.Location.LonDeg(), result.Phantom.Location.LatDeg()},
			Distance: result.Distance,
			Name:     result.Name,
		})
	}
	render.Render(w, r, resp)
}

func (h *NavigationHandler) Match(w http.ResponseWriter, r *http.Request) {
	waypoints, opts, err := h.parseRequest(r)
	if err != nil {
		h.renderError(w, r, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.requestTimeout)
	defer cancel()

	result, err := h.svc.Match(ctx, waypoints)
	if err != nil {
		h.renderError(w, r, err)
		return
	}
	render.Render(w, r, h.buildRouteResponse(result, opts, h.svc.Checksum()))
}

type tripResponse struct {
	Code   string              `json:"code"`
	Trips  []routeResponseBody `json:"trips"`
	Order  []int               `json:"waypoint_order"`
}

func (tr *tripResponse) Render(w http.ResponseWriter, r *http.Request) error {
	return nil
}

func (h *NavigationHandler) Trip(w http.ResponseWriter, r *http.Request) {
	waypoints, opts, err := h.parseRequest(r)
	if err != nil {
		h.renderError(w, r, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.requestTimeout)
	defer cancel()

	result, order, err := h.svc.Trip(ctx, waypoints)
	if err != nil {
		h.renderError(w, r, err)
		return
	}

	routeResp := h.buildRouteResponse(result, opts, h.svc.Checksum())
	render.Render(w, r, &tripResponse{
		Code:  "Ok",
		Trips: routeResp.Routes,
		Order: order,
	})
}

func parsePositiveInt(raw string) (int, error) {
	n := 0
	for _, c := range raw {
		if c < '0' || c > '9' {
			return 0, &ParseError{Position: 0, Message: "bad number"}
		}
		n = n*10 + int(c-'0')
	}
	if n == 0 {
		return 0, &ParseError{Position: 0, Message: "bad number"}
	}
	return n, nil
}

func allIndices(n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = i
	}
	return out
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
