package handler

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/pkg/errors"
	"github.com/rozgar/job-board/internal/api"
	"github.com/rozgar/job-board/internal/profile"
	"github.com/rozgar/job-board/internal/resume"
	"github.com/rozgar/job-board/internal/server"
	"github.com/rozgar/job-board/internal/user"
)

func GetProfileHandler(svr server.Server, profiles profileGetter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		email := claimsFrom(r).Email
		ctx, cancel := storeCtx(r)
		defer cancel()
		p, err := profiles.GetProfile(ctx, email)
		if errors.Is(err, profile.ErrNotFound) {
			// accounts created before profiles existed have none yet
			p = profile.Profile{Email: email, Skills: []string{}}
			err = nil
		}
		if err != nil {
			svr.Log(err, fmt.Sprintf("unable to get profile for %s", email))
			svr.JSON(w, http.StatusInternalServerError, api.Fail(api.MsgInternalError))
			return
		}
		svr.JSON(w, http.StatusOK, api.Response{Success: true, Profile: &p})
	}
}

type nameUpdater interface {
	UpdateName(ctx context.Context, email, name string) error
}

func SaveProfileHandler(svr server.Server, profiles profileSaver, users nameUpdater) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req := &struct {
			Name     string   `json:"name"`
			Headline string   `json:"headline"`
			Location string   `json:"location"`
			Bio      string   `json:"bio"`
			Phone    string   `json:"phone"`
			Skills   []string `json:"skills"`
		}{}
		if err := decodeJSON(w, r, req); err != nil {
			svr.JSON(w, http.StatusBadRequest, api.Fail(api.MsgMissingDetails))
			return
		}
		skills := make([]string, 0, len(req.Skills))
		for _, s := range req.Skills {
			skills = append(skills, sanitize(s))
		}
		skills = profile.NormalizeSkills(skills)
		if len(skills) > profile.MaxSkills {
			svr.JSON(w, http.StatusBadRequest, api.Fail(api.MsgTooManySkills))
			return
		}
		email := claimsFrom(r).Email
		p := profile.Profile{
			Email:    email,
			Name:     sanitize(req.Name),
			Headline: sanitize(req.Headline),
			Location: sanitize(req.Location),
			Bio:      sanitize(req.Bio),
			Phone:    sanitize(req.Phone),
			Skills:   skills,
		}
		ctx, cancel := storeCtx(r)
		defer cancel()
		if err := profiles.SaveProfile(ctx, &p); err != nil {
			svr.Log(err, fmt.Sprintf("unable to save profile for %s", email))
			svr.JSON(w, http.StatusInternalServerError, api.Fail(api.MsgInternalError))
			return
		}
		if p.Name != "" {
			if err := users.UpdateName(ctx, email, p.Name); err != nil {
				svr.Log(err, fmt.Sprintf("unable to update name for %s", email))
			}
		}
		svr.JSON(w, http.StatusOK, api.Response{Success: true, Profile: &p})
	}
}

func GetProfileByEmailHandler(svr server.Server, profiles profileGetter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		email := user.NormalizeEmail(mux.Vars(r)["email"])
		ctx, cancel := storeCtx(r)
		defer cancel()
		p, err := profiles.GetProfile(ctx, email)
		if errors.Is(err, profile.ErrNotFound) {
			svr.JSON(w, http.StatusNotFound, api.Fail(api.MsgProfileNotFound))
			return
		}
		if err != nil {
			svr.Log(err, fmt.Sprintf("unable to get profile for %s", email))
			svr.JSON(w, http.StatusInternalServerError, api.Fail(api.MsgInternalError))
			return
		}
		svr.JSON(w, http.StatusOK, api.Response{Success: true, Profile: &p})
	}
}

// multipartOverhead leaves room for the form boundaries around the file.
const multipartOverhead = 64 << 10

func UploadResumeHandler(svr server.Server, profiles profileGetSaver, store resume.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		email := user.NormalizeEmail(mux.Vars(r)["email"])
		if email != claimsFrom(r).Email {
			svr.JSON(w, http.StatusForbidden, api.Fail(api.MsgForbidden))
			return
		}
		r.Body = http.MaxBytesReader(w, r.Body, resume.MaxSize+multipartOverhead)
		file, header, err := r.FormFile("resume")
		if err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				svr.JSON(w, http.StatusRequestEntityTooLarge, api.Fail(api.MsgResumeTooLarge))
				return
			}
			svr.JSON(w, http.StatusBadRequest, api.Fail(api.MsgMissingDetails))
			return
		}
		defer file.Close()
		contentType, err := resume.ContentType(header.Filename)
		if err != nil {
			svr.JSON(w, http.StatusUnsupportedMediaType, api.Fail(api.MsgUnsupportedResume))
			return
		}
		data, err := io.ReadAll(io.LimitReader(file, resume.MaxSize+1))
		if err != nil {
			svr.Log(err, "unable to read resume file")
			svr.JSON(w, http.StatusBadRequest, api.Fail(api.MsgMissingDetails))
			return
		}
		if len(data) > resume.MaxSize {
			svr.JSON(w, http.StatusRequestEntityTooLarge, api.Fail(api.MsgResumeTooLarge))
			return
		}
		ctx, cancel := storeCtx(r)
		defer cancel()
		p, err := profiles.GetProfile(ctx, email)
		if errors.Is(err, profile.ErrNotFound) {
			p = profile.Profile{Email: email}
			err = nil
		}
		if err != nil {
			svr.Log(err, fmt.Sprintf("unable to get profile for %s", email))
			svr.JSON(w, http.StatusInternalServerError, api.Fail(api.MsgInternalError))
			return
		}
		key := resume.Key(email, header.Filename)
		if err := store.Put(ctx, key, contentType, bytes.NewReader(data), int64(len(data))); err != nil {
			svr.Log(err, fmt.Sprintf("unable to store resume for %s", email))
			svr.JSON(w, http.StatusInternalServerError, api.Fail(api.MsgInternalError))
			return
		}
		previous := p.Resume
		p.Resume = &profile.Resume{
			Key:         key,
			FileName:    header.Filename,
			ContentType: contentType,
			Size:        int64(len(data)),
			UploadedAt:  time.Now().UTC(),
		}
		if err := profiles.SaveProfile(ctx, &p); err != nil {
			svr.Log(err, fmt.Sprintf("unable to save resume reference for %s", email))
			svr.JSON(w, http.StatusInternalServerError, api.Fail(api.MsgInternalError))
			return
		}
		if previous != nil && previous.Key != "" && previous.Key != key {
			if err := store.Delete(ctx, previous.Key); err != nil {
				svr.Log(err, fmt.Sprintf("unable to delete previous resume %s", previous.Key))
			}
		}
		svr.JSON(w, http.StatusOK, api.Response{Success: true, Profile: &p})
	}
}

func DownloadResumeHandler(svr server.Server, profiles profileGetter, store resume.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		email := user.NormalizeEmail(mux.Vars(r)["email"])
		ctx, cancel := storeCtx(r)
		defer cancel()
		p, err := profiles.GetProfile(ctx, email)
		if errors.Is(err, profile.ErrNotFound) || (err == nil && p.Resume == nil) {
			svr.JSON(w, http.StatusNotFound, api.Fail(api.MsgResumeNotFound))
			return
		}
		if err != nil {
			svr.Log(err, fmt.Sprintf("unable to get profile for %s", email))
			svr.JSON(w, http.StatusInternalServerError, api.Fail(api.MsgInternalError))
			return
		}
		rc, err := store.Get(ctx, p.Resume.Key)
		if errors.Is(err, resume.ErrNotFound) {
			svr.JSON(w, http.StatusNotFound, api.Fail(api.MsgResumeNotFound))
			return
		}
		if err != nil {
			svr.Log(err, fmt.Sprintf("unable to read resume %s", p.Resume.Key))
			svr.JSON(w, http.StatusInternalServerError, api.Fail(api.MsgInternalError))
			return
		}
		defer rc.Close()
		w.Header().Set("Content-Type", p.Resume.ContentType)
		w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": p.Resume.FileName}))
		if p.Resume.Size > 0 {
			w.Header().Set("Content-Length", strconv.FormatInt(p.Resume.Size, 10))
		}
		w.WriteHeader(http.StatusOK)
		if _, err := io.Copy(w, rc); err != nil {
			svr.Log(err, fmt.Sprintf("unable to stream resume %s", p.Resume.Key))
		}
	}
}
