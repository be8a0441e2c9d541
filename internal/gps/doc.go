// Package gps decodes NMEA 0183 sentences from a GNSS receiver.
//
// Bytes are fed one at a time into an nmea.Parser; the Decoder turns the
// parser's field events into GGA, VTG and RMC reports. Sources:
//   - "nmea": a USB/UART receiver read through a serial device
//   - "gpsd": gpsd's raw NMEA watch stream over TCP
//   - "ublox": a u-blox module's DDC (I2C) port
//
// The Service keeps a Snapshot of the latest fix for status reporting.
package gps
