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
	"net/http"

	"github.com/gorilla/mux"

	"github.com/carverauto/powermon/pkg/models"
)

func (s *APIServer) handleListDevices(w http.ResponseWriter, r *http.Request) {
	devices, err := s.devices.List(r.Context())
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "failed to list devices")
		return
	}

	if devices == nil {
		devices = []models.AuthorizedDevice{}
	}

	s.writeJSON(w, http.StatusOK, devices)
}

func (s *APIServer) handleAddDevice(w http.ResponseWriter, r *http.Request) {
	var req models.DeviceCreateRequest

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.MACAddress == "" || req.DeviceName == "" || req.UserName == "" {
		s.writeError(w, http.StatusBadRequest, "mac_address, device_name and user_name are required")
		return
	}

	added, err := s.devices.Add(r.Context(), req.MACAddress, req.DeviceName, req.UserName, req.Notes)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "failed to add device")
		return
	}

	if !added {
		s.writeError(w, http.StatusBadRequest, "device already exists")
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]string{
		"status":  "success",
		"message": "Device added to whitelist",
	})
}

func (s *APIServer) handleGetDevice(w http.ResponseWriter, r *http.Request) {
	mac := mux.Vars(r)["mac"]

	device, err := s.devices.Get(r.Context(), mac)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "failed to get device")
		return
	}

	if device == nil {
		s.writeError(w, http.StatusNotFound, "device not found")
		return
	}

	s.writeJSON(w, http.StatusOK, device)
}

func (s *APIServer) handleRemoveDevice(w http.ResponseWriter, r *http.Request) {
	mac := mux.Vars(r)["mac"]

	removed, err := s.devices.Remove(r.Context(), mac)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "failed to remove device")
		return
	}

	if !removed {
		s.writeError(w, http.StatusNotFound, "device not found")
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]string{
		"status":  "success",
		"message": "Device removed from whitelist",
	})
}
