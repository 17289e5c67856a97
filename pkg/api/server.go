package api

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/oapi-codegen/runtime"
)

// ServerInterface represents all server handlers.
type ServerInterface interface {
	// List the caller's contracts as seller
	// (GET /contracts)
	ListContracts(w http.ResponseWriter, r *http.Request)
	// Create and publish a contract
	// (POST /contracts)
	CreateContract(w http.ResponseWriter, r *http.Request)
	// Find a contract by access code, binding the caller as buyer
	// (GET /contracts/lookup)
	LookupContract(w http.ResponseWriter, r *http.Request, params LookupContractParams)
	// List every contract the caller sells or buys
	// (GET /contracts/mine)
	ListMyContracts(w http.ResponseWriter, r *http.Request)
	// Get a contract, binding the caller as buyer
	// (GET /contracts/{id})
	GetContract(w http.ResponseWriter, r *http.Request, id int64)
	// Render the contract deep link as a QR PNG
	// (GET /contracts/{id}/qr)
	GetContractQr(w http.ResponseWriter, r *http.Request, id int64)
	// Apply a lifecycle transition
	// (POST /contracts/{id}/transitions/{transition})
	ApplyTransition(w http.ResponseWriter, r *http.Request, id int64, transition string)
	// Receive a signed payment provider notification
	// (POST /webhooks/payments)
	ReceivePaymentEvent(w http.ResponseWriter, r *http.Request)
}

// ServerInterfaceWrapper converts contexts to parameters.
type ServerInterfaceWrapper struct {
	Handler          ServerInterface
	ErrorHandlerFunc func(w http.ResponseWriter, r *http.Request, err error)
}

// InvalidParamFormatError is passed to ErrorHandlerFunc when a parameter cannot be bound.
type InvalidParamFormatError struct {
	ParamName string
	Err       error
}

func (e *InvalidParamFormatError) Error() string {
	return fmt.Sprintf("Invalid format for parameter %s: %s", e.ParamName, e.Err.Error())
}

func (e *InvalidParamFormatError) Unwrap() error {
	return e.Err
}

func (siw *ServerInterfaceWrapper) ListContracts(w http.ResponseWriter, r *http.Request) {
	siw.Handler.ListContracts(w, r)
}

func (siw *ServerInterfaceWrapper) CreateContract(w http.ResponseWriter, r *http.Request) {
	siw.Handler.CreateContract(w, r)
}

func (siw *ServerInterfaceWrapper) LookupContract(w http.ResponseWriter, r *http.Request) {
	var params LookupContractParams

	err := runtime.BindQueryParameter("form", true, true, "code", r.URL.Query(), &params.Code)
	if err != nil {
		siw.ErrorHandlerFunc(w, r, &InvalidParamFormatError{ParamName: "code", Err: err})
		return
	}

	siw.Handler.LookupContract(w, r, params)
}

func (siw *ServerInterfaceWrapper) ListMyContracts(w http.ResponseWriter, r *http.Request) {
	siw.Handler.ListMyContracts(w, r)
}

func (siw *ServerInterfaceWrapper) GetContract(w http.ResponseWriter, r *http.Request) {
	id, ok := siw.bindID(w, r)
	if !ok {
		return
	}
	siw.Handler.GetContract(w, r, id)
}

func (siw *ServerInterfaceWrapper) GetContractQr(w http.ResponseWriter, r *http.Request) {
	id, ok := siw.bindID(w, r)
	if !ok {
		return
	}
	siw.Handler.GetContractQr(w, r, id)
}

func (siw *ServerInterfaceWrapper) ApplyTransition(w http.ResponseWriter, r *http.Request) {
	id, ok := siw.bindID(w, r)
	if !ok {
		return
	}

	var transition string
	err := runtime.BindStyledParameterWithOptions("simple", "transition", chi.URLParam(r, "transition"), &transition,
		runtime.BindStyledParameterOptions{ParamLocation: runtime.ParamLocationPath, Explode: false, Required: true})
	if err != nil {
		siw.ErrorHandlerFunc(w, r, &InvalidParamFormatError{ParamName: "transition", Err: err})
		return
	}

	siw.Handler.ApplyTransition(w, r, id, transition)
}

func (siw *ServerInterfaceWrapper) ReceivePaymentEvent(w http.ResponseWriter, r *http.Request) {
	siw.Handler.ReceivePaymentEvent(w, r)
}

func (siw *ServerInterfaceWrapper) bindID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	var id int64
	err := runtime.BindStyledParameterWithOptions("simple", "id", chi.URLParam(r, "id"), &id,
		runtime.BindStyledParameterOptions{ParamLocation: runtime.ParamLocationPath, Explode: false, Required: true})
	if err != nil {
		siw.ErrorHandlerFunc(w, r, &InvalidParamFormatError{ParamName: "id", Err: err})
		return 0, false
	}
	return id, true
}

// ChiServerOptions configures HandlerWithOptions.
type ChiServerOptions struct {
	BaseURL          string
	BaseRouter       chi.Router
	ErrorHandlerFunc func(w http.ResponseWriter, r *http.Request, err error)
}

// HandlerFromMux creates http.Handler with routing matching the API, mounted on r.
func HandlerFromMux(si ServerInterface, r chi.Router) http.Handler {
	return HandlerWithOptions(si, ChiServerOptions{BaseRouter: r})
}

// HandlerWithOptions creates http.Handler with additional options.
func HandlerWithOptions(si ServerInterface, options ChiServerOptions) http.Handler {
	r := options.BaseRouter
	if r == nil {
		r = chi.NewRouter()
	}
	if options.ErrorHandlerFunc == nil {
		options.ErrorHandlerFunc = func(w http.ResponseWriter, r *http.Request, err error) {
			http.Error(w, err.Error(), http.StatusBadRequest)
		}
	}
	wrapper := ServerInterfaceWrapper{
		Handler:          si,
		ErrorHandlerFunc: options.ErrorHandlerFunc,
	}

	r.Group(func(r chi.Router) {
		r.Get(options.BaseURL+"/contracts", wrapper.ListContracts)
	})
	r.Group(func(r chi.Router) {
		r.Post(options.BaseURL+"/contracts", wrapper.CreateContract)
	})
	r.Group(func(r chi.Router) {
		r.Get(options.BaseURL+"/contracts/lookup", wrapper.LookupContract)
	})
	r.Group(func(r chi.Router) {
		r.Get(options.BaseURL+"/contracts/mine", wrapper.ListMyContracts)
	})
	r.Group(func(r chi.Router) {
		r.Get(options.BaseURL+"/contracts/{id}", wrapper.GetContract)
	})
	r.Group(func(r chi.Router) {
		r.Get(options.BaseURL+"/contracts/{id}/qr", wrapper.GetContractQr)
	})
	r.Group(func(r chi.Router) {
		r.Post(options.BaseURL+"/contracts/{id}/transitions/{transition}", wrapper.ApplyTransition)
	})
	r.Group(func(r chi.Router) {
		r.Post(options.BaseURL+"/webhooks/payments", wrapper.ReceivePaymentEvent)
	})

	return r
}
