// Copyright 2020 The grand-mother Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package station

import "math"

const (
	radPole    = 6357000.0 // Earth radius at the poles, in meters
	radEquator = 6378000.0 // Earth radius at the equator, in meters

	radToDeg = 57.295779513082325
)

// EarthRadius returns the radius of the Earth at the provided latitude
// (in degrees), modeling the Earth as a flattened sphere.
func EarthRadius(lat float64) float64 {
	var (
		phi = lat / radToDeg
		cos = math.Cos(phi)
		sin = math.Sin(phi)
		num = math.Pow(radEquator*radEquator*cos, 2) + math.Pow(radPole*radPole*sin, 2)
		den = math.Pow(radEquator*cos, 2) + math.Pow(radPole*sin, 2)
	)
	return math.Sqrt(num / den)
}

// Project returns the planar (x, y) position, in meters, of the point at
// (lat, lon) relative to the field center c.
// x points north and y points west.
func Project(c Center, lat, lon float64) (x, y float32) {
	r := EarthRadius(c.Latitude)
	y = float32(math.Cos(c.Latitude/radToDeg) * (c.Longitude - lon) * r / radToDeg)
	x = float32((lat - c.Latitude) * r / radToDeg)
	return x, y
}
