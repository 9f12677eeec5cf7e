package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

func parseIntQuery(c *gin.Context, key string) (int, error) {
	v := c.Query(key)
	if v == "" {
		return 0, strconv.ErrSyntax
	}
	return strconv.Atoi(v)
}

func parseFloatQuery(c *gin.Context, key string) (float64, error) {
	v := c.Query(key)
	if v == "" {
		return 0, strconv.ErrSyntax
	}
	return strconv.ParseFloat(v, 64)
}

// queryParams collects the given query keys into a params map the
// gateway's Route expects, skipping keys that weren't supplied.
func queryParams(c *gin.Context, keys ...string) map[string]any {
	out := make(map[string]any, len(keys))
	for _, k := range keys {
		if v := c.Query(k); v != "" {
			out[k] = v
		}
	}
	return out
}

// bindJSONParams decodes the request body into a generic params map.
// An empty body decodes to an empty map rather than an error, so GET-
// style actions that carry no payload still route cleanly.
func bindJSONParams(c *gin.Context) (map[string]any, error) {
	var params map[string]any
	if c.Request.ContentLength == 0 {
		return map[string]any{}, nil
	}
	if err := c.ShouldBindJSON(&params); err != nil {
		return nil, err
	}
	if params == nil {
		params = map[string]any{}
	}
	return params, nil
}

// route runs the gateway call and writes either the JSON response or a
// mapped error status.
func (s *Server) route(c *gin.Context, service, action string, params map[string]any) {
	resp, err := s.Gateway.Route(c.Request.Context(), service, action, params, CurrentPrincipal(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
