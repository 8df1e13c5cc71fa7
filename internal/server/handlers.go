package server

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"

	"newsflash-bot/internal/news"
	"newsflash-bot/internal/registry"
)

// relay fetches ?url= with browser headers and passes the body through.
func (s *Server) relay(c *gin.Context) {
	target := c.Query("url")
	if target == "" {
		c.String(http.StatusBadRequest, "Error: No URL provided")
		return
	}
	if u, err := url.Parse(target); err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		c.String(http.StatusBadRequest, "Error: invalid URL")
		return
	}

	resp, err := s.proxy.R().SetContext(c.Request.Context()).Get(target)
	if err != nil {
		s.logger.Warn("Relay request failed", "url", target, "error", err.Error())
		c.String(http.StatusInternalServerError, "Proxy Error: %v", err)
		return
	}

	if resp.StatusCode() != http.StatusOK {
		c.String(resp.StatusCode(), "Error from target: %d - %s", resp.StatusCode(), resp.String())
		return
	}

	contentType := resp.Header().Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	c.Data(http.StatusOK, contentType, resp.Body())
}

func (s *Server) category(c *gin.Context) {
	category, err := news.ParseCategory(c.Param("category"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{
			"code":    "unknown_category",
			"message": err.Error(),
		})
		return
	}

	result, err := s.pipeline.FetchCategory(c.Request.Context(), category)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"code":    "internal_error",
			"message": "internal server error",
		})
		return
	}

	etag := s.checksum.ETag(s.checksum.ResultHash(result))
	c.Header("ETag", etag)
	c.Header("Cache-Control", "no-cache")
	if s.checksum.MatchesETag(c.GetHeader("If-None-Match"), etag) {
		c.Status(http.StatusNotModified)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"code":     "ok",
		"category": category,
		"data":     result,
	})
}

func (s *Server) source(c *gin.Context) {
	id := c.Param("id")
	result, err := s.pipeline.FetchSource(c.Request.Context(), id)
	if errors.Is(err, registry.ErrSourceNotFound) {
		c.JSON(http.StatusNotFound, gin.H{
			"code":    "unknown_source",
			"message": fmt.Sprintf("unknown source: %s", id),
		})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"code":    "internal_error",
			"message": "internal server error",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"code":   "ok",
		"source": id,
		"data":   result,
	})
}

type sourceInfo struct {
	ID       string            `json:"id"`
	Name     string            `json:"name"`
	Strategy registry.Strategy `json:"strategy"`
}

type categoryInfo struct {
	Category news.Category `json:"category"`
	Sources  []sourceInfo  `json:"sources"`
}

// categories lists every category with its sources in display order.
func (s *Server) categories(c *gin.Context) {
	cats := s.catalog.Categories()
	data := make([]categoryInfo, 0, len(cats))
	for _, cat := range cats {
		info := categoryInfo{Category: cat, Sources: []sourceInfo{}}
		for _, d := range s.catalog.Lookup(cat) {
			info.Sources = append(info.Sources, sourceInfo{ID: d.ID, Name: d.DisplayName(), Strategy: d.Strategy})
		}
		data = append(data, info)
	}

	c.JSON(http.StatusOK, gin.H{
		"code": "ok",
		"data": data,
	})
}
