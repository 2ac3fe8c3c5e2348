package web

import (
	"net/http"
	"strconv"

	"horsemarket-web/internal/api"
	"horsemarket-web/internal/filter"

	"github.com/gin-gonic/gin"
)

const maxUploadFiles = 10

type searchView struct {
	Listings []api.Listing  `json:"listings"`
	Total    int            `json:"total"`
	Page     int            `json:"page"`
	Filter   filter.Form    `json:"filter"`
	Options  filter.Options `json:"options"`
}

func (s *Server) searchListings(c *gin.Context) {
	form := s.Regions.Normalize(filter.Form{
		Category: c.Query("category"),
		Region:   c.Query("region"),
		District: c.Query("district"),
		Query:    c.Query("q"),
	})
	page, _ := strconv.Atoi(c.Query("page"))

	result, err := s.API.SearchListings(c.Request.Context(), api.ListingQuery{
		Category: form.Category,
		Region:   form.Region,
		District: form.District,
		Text:     form.Query,
		Page:     page,
	}, credentials(c))
	if err != nil {
		s.fail(c, err)
		return
	}

	listings := result.Items
	if listings == nil {
		listings = []api.Listing{}
	}
	ok(c, searchView{
		Listings: listings,
		Total:    result.Total,
		Page:     result.Page,
		Filter:   form,
		Options:  s.Regions.Options(form),
	})
}

// districts serves the district dropdown for a region without touching the API.
func (s *Server) districts(c *gin.Context) {
	form := s.Regions.Normalize(filter.Form{Region: c.Query("region")})
	ok(c, s.Regions.Options(form))
}

type listingView struct {
	api.Listing
	Favorite bool `json:"favorite"`
}

func (s *Server) listingDetail(c *gin.Context) {
	ctx := c.Request.Context()
	listing, err := s.API.Listing(ctx, c.Param("listing"), credentials(c))
	if err != nil {
		s.fail(c, err)
		return
	}
	listing.Description = s.Content.SanitizeHTML(listing.Description)

	view := listingView{Listing: *listing}
	if sess := currentSession(c); sess.Authenticated() {
		favorite, err := s.Favorites.Contains(ctx, sess.User.ID, listing.ID, sess.Credentials())
		if err != nil {
			s.logger.WarnContext(ctx, "Error checking favorite", "error", err, "listingId", listing.ID)
		}
		view.Favorite = favorite
	}
	ok(c, view)
}

func (s *Server) createListing(c *gin.Context) {
	var draft api.ListingDraft
	if err := c.ShouldBindJSON(&draft); err != nil || draft.Title == "" {
		abort(c, http.StatusBadRequest, "title is required")
		return
	}

	if draft.Region != "" {
		if !s.Regions.HasRegion(draft.Region) {
			abort(c, http.StatusUnprocessableEntity, "unknown region")
			return
		}
		form := filter.Form{}
		if _, err := form.WithRegion(draft.Region).WithDistrict(s.Regions, draft.District); err != nil {
			abort(c, http.StatusUnprocessableEntity, err.Error())
			return
		}
	}
	draft.Description = s.Content.SanitizeHTML(draft.Description)

	listing, err := s.API.CreateListing(c.Request.Context(), draft, credentials(c))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, envelope{Success: true, Data: listing})
}

func (s *Server) uploadMedia(c *gin.Context) {
	form, err := c.MultipartForm()
	if err != nil {
		abort(c, http.StatusBadRequest, "multipart form expected")
		return
	}
	headers := form.File["files"]
	if len(headers) == 0 {
		abort(c, http.StatusBadRequest, "no files")
		return
	}
	if len(headers) > maxUploadFiles {
		abort(c, http.StatusBadRequest, "too many files")
		return
	}

	files := make([]api.MediaFile, 0, len(headers))
	for _, h := range headers {
		f, err := h.Open()
		if err != nil {
			s.logger.ErrorContext(c.Request.Context(), "Error opening uploaded file", "error", err)
			abort(c, http.StatusBadRequest, "unreadable file")
			return
		}
		defer f.Close()
		files = append(files, api.MediaFile{Name: h.Filename, Content: f})
	}

	urls, err := s.API.UploadMedia(c.Request.Context(), c.Param("listing"), files, credentials(c))
	if err != nil {
		s.fail(c, err)
		return
	}
	ok(c, urls)
}
