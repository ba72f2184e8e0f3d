// Package otosink plays decoded blocks on the system audio device.
//
// The default build uses oto. Building with the headless tag replaces the
// device with a sink that discards samples at the playback rate, for
// machines without audio hardware.
package otosink
