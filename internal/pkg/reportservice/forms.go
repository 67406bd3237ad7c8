package reportservice

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/airenas/wardrep/internal/pkg/forms"
	"github.com/airenas/wardrep/internal/pkg/persistence"
	"github.com/labstack/echo/v4"
)

// FormManager handles form definitions
type FormManager interface {
	Create(ctx context.Context, in *forms.Input) (*persistence.Form, error)
	Update(ctx context.Context, id int64, in *forms.Input) (*persistence.Form, error)
	Deploy(ctx context.Context, id int64) (*persistence.Form, error)
	Archive(ctx context.Context, id int64) (*persistence.Form, error)
	GetActive(ctx context.Context) (*persistence.Form, error)
	Get(ctx context.Context, id int64) (*persistence.Form, error)
	List(ctx context.Context) ([]*persistence.Form, error)
}

type formInput struct {
	Name        string          `json:"name" validate:"required,max=255"`
	Description string          `json:"description" validate:"max=2000"`
	Definition  json.RawMessage `json:"definition" validate:"required"`
}

func (in *formInput) toInput(user int64) *forms.Input {
	return &forms.Input{Name: in.Name, Description: in.Description, Definition: in.Definition, UserID: user}
}

func createForm(data *Data) func(echo.Context) error {
	return func(c echo.Context) error {
		user, err := userID(c)
		if err != nil {
			return err
		}
		in, err := bindForm(c)
		if err != nil {
			return writeErr(c, err)
		}
		f, err := data.Forms.Create(c.Request().Context(), in.toInput(user))
		if err != nil {
			return writeErr(c, err)
		}
		return c.JSON(http.StatusCreated, toFormResult(f))
	}
}

func updateForm(data *Data) func(echo.Context) error {
	return func(c echo.Context) error {
		user, err := userID(c)
		if err != nil {
			return err
		}
		id, err := pathID(c)
		if err != nil {
			return err
		}
		in, err := bindForm(c)
		if err != nil {
			return writeErr(c, err)
		}
		f, err := data.Forms.Update(c.Request().Context(), id, in.toInput(user))
		if err != nil {
			return writeErr(c, err)
		}
		return c.JSON(http.StatusOK, toFormResult(f))
	}
}

func bindForm(c echo.Context) (*formInput, error) {
	var res formInput
	if err := c.Bind(&res); err != nil {
		return nil, echo.NewHTTPError(http.StatusBadRequest, "wrong input")
	}
	if err := c.Validate(&res); err != nil {
		return nil, err
	}
	return &res, nil
}

func deployForm(data *Data) func(echo.Context) error {
	return formAction(data.Forms.Deploy)
}

func archiveForm(data *Data) func(echo.Context) error {
	return formAction(data.Forms.Archive)
}

func getForm(data *Data) func(echo.Context) error {
	return formAction(data.Forms.Get)
}

func formAction(f func(context.Context, int64) (*persistence.Form, error)) func(echo.Context) error {
	return func(c echo.Context) error {
		id, err := pathID(c)
		if err != nil {
			return err
		}
		res, err := f(c.Request().Context(), id)
		if err != nil {
			return writeErr(c, err)
		}
		return c.JSON(http.StatusOK, toFormResult(res))
	}
}

func activeForm(data *Data) func(echo.Context) error {
	return func(c echo.Context) error {
		f, err := data.Forms.GetActive(c.Request().Context())
		if err != nil {
			return writeErr(c, err)
		}
		if f == nil {
			return c.NoContent(http.StatusNoContent)
		}
		return c.JSON(http.StatusOK, toFormResult(f))
	}
}

func listForms(data *Data) func(echo.Context) error {
	return func(c echo.Context) error {
		fs, err := data.Forms.List(c.Request().Context())
		if err != nil {
			return writeErr(c, err)
		}
		res := make([]*formResult, 0, len(fs))
		for _, f := range fs {
			res = append(res, toFormResult(f))
		}
		return c.JSON(http.StatusOK, res)
	}
}
