package models

// MockPayload is the synthesized data embedded in failure responses.
type MockPayload struct {
	Temperatures []SensorReading `json:"temperatures"`
	Timestamp    string          `json:"timestamp"`
	Source       Provenance      `json:"source"`
}

// LatestEnvelope is the wire shape of the latest-log endpoint. Success fills
// Timestamp/Temperatures/RawData/Source; failure fills Error/Message/MockData.
type LatestEnvelope struct {
	Success       bool              `json:"success"`
	Timestamp     string            `json:"timestamp,omitempty"`
	Temperatures  []SensorReading   `json:"temperatures,omitempty"`
	RawData       map[string]string `json:"rawData,omitempty"`
	Source        Provenance        `json:"source,omitempty"`
	Error         string            `json:"error,omitempty"`
	Message       string            `json:"message,omitempty"`
	UsingMockData bool              `json:"usingMockData,omitempty"`
	MockData      *MockPayload      `json:"mockData,omitempty"`
}

// TemperatureData is the data block of the composed temperature endpoint.
type TemperatureData struct {
	Temperatures []SensorReading `json:"temperatures"`
	Summary      Summary         `json:"summary"`
}

// TemperatureResponse is the composed endpoint body.
type TemperatureResponse struct {
	Success    bool            `json:"success"`
	Connected  bool            `json:"connected"`
	Timestamp  string          `json:"timestamp"`
	DataSource Provenance      `json:"dataSource"`
	Data       TemperatureData `json:"data"`
	Error      string          `json:"error,omitempty"`
	Message    string          `json:"message,omitempty"`
}
