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

// Package identity derives the stable device identifier and the HMAC
// device certificate shared between agent and collector.
package identity

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"net"
	"os/exec"
	"regexp"
	"runtime"
	"strings"

	gopsnet "github.com/shirou/gopsutil/v3/net"
)

// FallbackMAC is returned when no hardware address can be discovered.
// It is a valid identifier on the wire so discovery failure never
// propagates past this package.
const FallbackMAC = "00:00:00:00:00:00"

var macPattern = regexp.MustCompile(`(?i)([0-9a-f]{2}[:-]){5}[0-9a-f]{2}`)

// Discovery seams for tests.
var (
	netInterfaces  = net.Interfaces
	gopsInterfaces = gopsnet.Interfaces
	commandOutput  = runCommandOutput
)

// MACAddress discovers the machine's hardware address, preferring the
// first non-loopback interface, then gopsutil's enumeration, then a
// platform command. All failures fall through to FallbackMAC.
func MACAddress() string {
	if mac, ok := fromNetInterfaces(); ok {
		return mac
	}

	if mac, ok := fromGopsutil(); ok {
		return mac
	}

	if mac, ok := fromPlatformCommand(); ok {
		return mac
	}

	return FallbackMAC
}

func fromNetInterfaces() (string, bool) {
	ifaces, err := netInterfaces()
	if err != nil {
		return "", false
	}

	for _, iface := range ifaces {
		if iface.Flags&net.FlagLoopback != 0 {
			continue
		}

		if addr := iface.HardwareAddr.String(); len(addr) == 17 {
			return Normalize(addr), true
		}
	}

	return "", false
}

func fromGopsutil() (string, bool) {
	ifaces, err := gopsInterfaces()
	if err != nil {
		return "", false
	}

	for _, iface := range ifaces {
		if iface.Name == "lo" {
			continue
		}

		if len(iface.HardwareAddr) == 17 {
			return Normalize(iface.HardwareAddr), true
		}
	}

	return "", false
}

func fromPlatformCommand() (string, bool) {
	var out string

	var err error

	if runtime.GOOS == "windows" {
		out, err = commandOutput("getmac")
	} else {
		out, err = commandOutput("ip", "link")
	}

	if err != nil {
		return "", false
	}

	mac := macPattern.FindString(out)
	if mac == "" || strings.HasPrefix(mac, "00:00:00") {
		return "", false
	}

	return Normalize(mac), true
}

func runCommandOutput(name string, args ...string) (string, error) {
	out, err := exec.Command(name, args...).Output()
	if err != nil {
		return "", err
	}

	return string(out), nil
}

// Normalize converts a MAC address to its canonical form: uppercase with
// colon separators. It must be applied before any comparison or
// certificate computation so formatting differences between agent and
// collector never cause a false rejection.
func Normalize(mac string) string {
	return strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(mac), "-", ":"))
}

// Certificate computes the device certificate for a MAC address under a
// shared secret: hex HMAC-SHA256(secret, mac). Deterministic; both sides
// recompute it on every check rather than storing it.
func Certificate(mac, secret string) string {
	mac = Normalize(mac)

	h := hmac.New(sha256.New, []byte(secret))
	h.Write([]byte(mac))

	return hex.EncodeToString(h.Sum(nil))
}

// Verify reports whether a supplied certificate matches the expected one
// for mac under secret, in constant time.
func Verify(mac, secret, certificate string) bool {
	expected := Certificate(mac, secret)
	return hmac.Equal([]byte(expected), []byte(certificate))
}
