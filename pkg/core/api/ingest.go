/*
 * Copyright 2025 Carver Automation Corporation.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package api

import (
	"encoding/json"
	"net"
	"net/http"

	"github.com/carverauto/powermon/pkg/core"
	"github.com/carverauto/powermon/pkg/core/auth"
	"github.com/carverauto/powermon/pkg/models"
)

// handleIngest authenticates the sending device and runs the sample
// through the ingestion pipeline. Cleaning failures still return 200 with
// a partial_success status; only a raw persistence failure is a 500.
func (s *APIServer) handleIngest(w http.ResponseWriter, r *http.Request) {
	var sample models.Sample

	if err := json.NewDecoder(r.Body).Decode(&sample); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := validateSample(&sample); err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	authResult, err := s.authGate.Verify(
		r.Context(),
		r.Header.Get(auth.HeaderMACAddress),
		r.Header.Get(auth.HeaderCertificate),
		remoteIP(r),
	)
	if err != nil {
		s.writeError(w, auth.RejectionStatus(err), err.Error())
		return
	}

	result, err := s.ingestor.Ingest(r.Context(), &sample, authResult)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "processing failed: "+err.Error())
		return
	}

	response := models.IngestResponse{
		Device:           sample.DeviceID,
		AuthMethod:       authResult.Method,
		FingerprintCheck: result.FingerprintCheck,
	}

	switch result.Outcome {
	case core.OutcomeSuccess:
		response.Status = models.IngestStatusSuccess
	case core.OutcomePartialSuccess:
		response.Status = models.IngestStatusPartialSuccess
		response.Reason = result.Reason
	case core.OutcomeFailure:
		// Unreachable: failure surfaces as err above. Kept for exhaustiveness.
		s.writeError(w, http.StatusInternalServerError, result.Reason)
		return
	}

	s.writeJSON(w, http.StatusOK, response)
}

func remoteIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}

	return host
}
