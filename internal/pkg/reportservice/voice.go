package reportservice

import (
	"errors"
	"io/fs"
	"net/http"
	"path/filepath"

	"github.com/airenas/go-app/pkg/goapp"
	"github.com/labstack/echo/v4"
	"github.com/minio/minio-go/v7"
)

func getVoice(data *Data) func(echo.Context) error {
	return func(c echo.Context) error {
		id := c.Param("id")
		if id == "" {
			return echo.NewHTTPError(http.StatusBadRequest, "no ID")
		}
		va, err := data.Submitter.GetVoice(c.Request().Context(), id)
		if err != nil {
			return writeErr(c, err)
		}
		return c.JSON(http.StatusOK, toVoiceResult(va))
	}
}

func downloadVoice(data *Data) func(echo.Context) error {
	return func(c echo.Context) error {
		defer goapp.Estimate("download method")()

		id := c.Param("id")
		if id == "" {
			return echo.NewHTTPError(http.StatusBadRequest, "no ID")
		}
		va, err := data.Submitter.GetVoice(c.Request().Context(), id)
		if err != nil {
			return writeErr(c, err)
		}
		return serveFile(c, data, va.FilePath, va.FileName)
	}
}

func serveFile(c echo.Context, data *Data, name, fileName string) error {
	goapp.Log.Info().Str("file", name).Msg("loading")
	file, err := data.Reader.LoadFile(c.Request().Context(), name)
	if err != nil {
		goapp.Log.Error().Err(err).Send()
		if isNotFound(err) {
			return echo.NewHTTPError(http.StatusNotFound, "not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "can't get file")
	}
	defer file.Close()
	stGetter, ok := file.(interface{ Stat() (fs.FileInfo, error) })
	if !ok {
		goapp.Log.Error().Msg(`file does not implement "interface{ Stat() (fs.FileInfo, error)"`)
		return echo.NewHTTPError(http.StatusInternalServerError, "can't get file stat")
	}
	stat, err := stGetter.Stat()
	if err != nil {
		goapp.Log.Error().Err(err).Send()
		if isNotFound(err) {
			return echo.NewHTTPError(http.StatusNotFound, "not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "can't get file stat")
	}
	if fileName == "" {
		fileName = filepath.Base(stat.Name())
	}
	w := c.Response()
	w.Header().Set("Content-Disposition", "attachment; filename="+fileName)
	// name extension selects a content type
	http.ServeContent(w, c.Request(), fileName, stat.ModTime(), file)
	return nil
}

func isNotFound(err error) bool {
	var errTest minio.ErrorResponse
	return errors.As(err, &errTest) && errTest.StatusCode == http.StatusNotFound
}
