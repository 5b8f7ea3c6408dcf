package handler

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/feeds"
	"github.com/gorilla/mux"
	"github.com/rozgar/job-board/internal/api"
	"github.com/rozgar/job-board/internal/job"
	"github.com/rozgar/job-board/internal/server"
)

func JobsHandler(svr server.Server, jobs jobLister) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := strings.TrimSpace(r.URL.Query().Get("q"))
		skill := strings.TrimSpace(r.URL.Query().Get("skill"))
		listings := jobs.Listings()
		res := api.JobsResponse{
			Success: true,
			Jobs:    job.Filter(listings, q, skill),
			Skills:  job.Skills(listings),
		}
		if res.Skills == nil {
			res.Skills = []string{}
		}
		svr.JSON(w, http.StatusOK, res)
	}
}

func JobHandler(svr server.Server, jobs jobLister) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		l, ok := jobs.BySlug(mux.Vars(r)["slug"])
		if !ok {
			svr.JSON(w, http.StatusNotFound, api.Fail("Job not found"))
			return
		}
		svr.JSON(w, http.StatusOK, api.Response{Success: true, Jobs: []job.Listing{l}})
	}
}

func JobsFeedHandler(svr server.Server, jobs jobLister) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cfg := svr.GetConfig()
		siteURL := cfg.URLProtocol + cfg.SiteHost
		author := &feeds.Author{Name: cfg.SiteName, Email: cfg.NoReplyEmail}
		feed := &feeds.Feed{
			Title:       fmt.Sprintf("%s Jobs", cfg.SiteName),
			Link:        &feeds.Link{Href: siteURL},
			Description: fmt.Sprintf("Latest jobs on %s", cfg.SiteName),
			Author:      author,
			Created:     time.Now(),
		}
		for _, l := range jobs.Listings() {
			desc := l.Description + "\n\n**Skills:** " + strings.Join(l.Skills, ", ") + "\n\n**Type:** " + l.Type
			feed.Items = append(feed.Items, &feeds.Item{
				Id:          l.Slug,
				Title:       fmt.Sprintf("%s with %s - %s", l.Title, l.Company, l.Location),
				Link:        &feeds.Link{Href: fmt.Sprintf("%s/api/jobs/%s", siteURL, l.Slug)},
				Description: string(svr.MarkdownToHTML(desc)),
				Author:      author,
				Created:     l.PostedAt,
			})
		}
		rssFeed, err := feed.ToRss()
		if err != nil {
			svr.Log(err, "unable to convert rss feed to xml")
			svr.XML(w, http.StatusInternalServerError, []byte{})
			return
		}
		svr.XML(w, http.StatusOK, []byte(rssFeed))
	}
}
