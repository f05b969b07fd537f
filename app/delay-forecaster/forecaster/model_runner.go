package forecaster

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
)

//ModelRunner is the external forecasting model. Given a numeric history it returns sampled future paths.
type ModelRunner interface {
	//LoadModel asks the runner to load modelName on device, returning an error if it cannot
	LoadModel(ctx context.Context, modelName string, device string) error
	//Predict returns request.NumSamples sample paths each request.PredictionLength long
	Predict(ctx context.Context, request PredictionRequest) (PredictionResponse, error)
}

//LoadRequest asks the model runner to make a model available
type LoadRequest struct {
	RequestId string `json:"request_id"`
	ModelName string `json:"model_name"`
	Device    string `json:"device"`
}

//LoadResponse is the model runner's answer to LoadRequest
type LoadResponse struct {
	RequestId string `json:"request_id"`
	Error     string `json:"error"`
}

//PredictionRequest holds the history of one route to forecast
type PredictionRequest struct {
	RequestId        string    `json:"request_id"`
	ModelName        string    `json:"model_name"`
	Context          []float64 `json:"context"`
	PredictionLength int       `json:"prediction_length"`
	NumSamples       int       `json:"num_samples"`
}

//PredictionResponse holds the sample paths returned by the model runner
type PredictionResponse struct {
	RequestId string      `json:"request_id"`
	Samples   [][]float64 `json:"samples"`
	Error     string      `json:"error"`
}

//natsModelRunner implements ModelRunner with nats request/reply
type natsModelRunner struct {
	natsConn       *nats.Conn
	loadSubject    string
	predictSubject string
	timeout        time.Duration
}

//NewNatsModelRunner creates a ModelRunner that sends json requests on loadSubject and predictSubject,
//waiting up to timeout for each reply
func NewNatsModelRunner(natsConn *nats.Conn, loadSubject string, predictSubject string, timeout time.Duration) ModelRunner {
	return &natsModelRunner{
		natsConn:       natsConn,
		loadSubject:    loadSubject,
		predictSubject: predictSubject,
		timeout:        timeout,
	}
}

//LoadModel implements ModelRunner
func (n *natsModelRunner) LoadModel(ctx context.Context, modelName string, device string) error {
	request := LoadRequest{
		RequestId: uuid.New().String(),
		ModelName: modelName,
		Device:    device,
	}
	response := LoadResponse{}
	if err := n.request(ctx, n.loadSubject, request, &response); err != nil {
		return err
	}
	if len(response.Error) > 0 {
		return errors.New(response.Error)
	}
	return nil
}

//Predict implements ModelRunner
func (n *natsModelRunner) Predict(ctx context.Context, request PredictionRequest) (PredictionResponse, error) {
	if len(request.RequestId) == 0 {
		request.RequestId = uuid.New().String()
	}
	response := PredictionResponse{}
	if err := n.request(ctx, n.predictSubject, request, &response); err != nil {
		return response, err
	}
	if len(response.Error) > 0 {
		return response, errors.New(response.Error)
	}
	return response, nil
}

//request sends payload as json on subject and decodes the json reply into response
func (n *natsModelRunner) request(ctx context.Context, subject string, payload interface{}, response interface{}) error {
	jsonData, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("unable to marshal request for %s: %w", subject, err)
	}
	ctx, cancel := context.WithTimeout(ctx, n.timeout)
	defer cancel()
	msg, err := n.natsConn.RequestWithContext(ctx, subject, jsonData)
	if err != nil {
		return fmt.Errorf("no reply on %s: %w", subject, err)
	}
	err = json.Unmarshal(msg.Data, response)
	if err != nil {
		return fmt.Errorf("error parsing reply on %s: %w, payload:%s", subject, err, string(msg.Data))
	}
	return nil
}
