package dsp

import "math"

// The analysis works on order-2 prediction vectors indexed [0..2] with
// [0] fixed at 1. Index 0 of the 3x3 matrices is unused except as scratch,
// which keeps the arithmetic identical to the reference encoders; the
// results are only bit-exact if the operation order below is preserved.

type (
	vec3 [3]float64
	mat3 [3][3]float64
)

// CalculateCoefficients derives the 8 coefficient pairs for one channel.
//
// The channel is analysed in 14-sample frames with the preceding 14
// samples as context. Frames with enough energy yield a stable order-2
// predictor record; the records are averaged into one predictor, which is
// then split and refined (a small k-means over the records) until 8
// predictors remain.
//
// An empty or silent input produces all-zero coefficients.
func CalculateCoefficients(pcm []int16) Coefficients {
	var (
		window  [2 * FrameSampleCount]int16
		vec1    vec3
		buffer  vec3
		mtx     mat3
		vecIdxs [3]int
		vecBest [CoefficientPairs]vec3
	)

	records := make([]vec3, 0, FrameCount(len(pcm))*2)

	for sample := 0; sample < len(pcm); sample += FrameSampleCount {
		clear(window[FrameSampleCount:])
		copy(window[FrameSampleCount:], pcm[sample:min(sample+FrameSampleCount, len(pcm))])

		innerProductMerge(&vec1, &window)
		if math.Abs(vec1[0]) > 10.0 {
			outerProductMerge(&mtx, &window)
			if !analyzeRanges(&mtx, &vecIdxs, &buffer) {
				bidirectionalFilter(&mtx, &vecIdxs, &vec1)
				if !quadraticMerge(&vec1) {
					var rec vec3
					finishRecord(&vec1, &rec)
					records = append(records, rec)
				}
			}
		}

		copy(window[:FrameSampleCount], window[FrameSampleCount:])
	}

	vec1 = vec3{1.0, 0.0, 0.0}
	for z := range records {
		matrixFilter(&records[z], &vecBest[0], &mtx)
		for y := 1; y <= 2; y++ {
			vec1[y] += vecBest[0][y]
		}
	}
	if len(records) > 0 {
		for y := 1; y <= 2; y++ {
			vec1[y] /= float64(len(records))
		}
	}

	mergeFinishRecord(&vec1, &vecBest[0])

	exp := 1
	for w := 0; w < 3; {
		vec2 := vec3{0.0, -1.0, 0.0}
		for i := 0; i < exp; i++ {
			for y := 0; y <= 2; y++ {
				vecBest[exp+i][y] = (0.01 * vec2[y]) + vecBest[i][y]
			}
		}
		w++
		exp = 1 << w
		filterRecords(&vecBest, exp, records)
	}

	var coefs Coefficients
	for z := range CoefficientPairs {
		coefs[z][0] = roundToInt16(-vecBest[z][1] * 2048.0)
		coefs[z][1] = roundToInt16(-vecBest[z][2] * 2048.0)
	}

	return coefs
}

func roundToInt16(d float64) int16 {
	r := math.Round(d)
	if math.IsNaN(r) {
		return 0
	}
	if r > 32767 {
		return 32767
	}
	if r < -32768 {
		return -32768
	}

	return int16(r)
}

func innerProductMerge(out *vec3, pcm *[2 * FrameSampleCount]int16) {
	for i := 0; i <= 2; i++ {
		out[i] = 0.0
		for x := 0; x < FrameSampleCount; x++ {
			out[i] -= float64(int32(pcm[FrameSampleCount+x-i]) * int32(pcm[FrameSampleCount+x]))
		}
	}
}

func outerProductMerge(out *mat3, pcm *[2 * FrameSampleCount]int16) {
	for x := 1; x <= 2; x++ {
		for y := 1; y <= 2; y++ {
			out[x][y] = 0.0
			for z := 0; z < FrameSampleCount; z++ {
				out[x][y] += float64(int32(pcm[FrameSampleCount+z-x]) * int32(pcm[FrameSampleCount+z-y]))
			}
		}
	}
}

// analyzeRanges performs an LU decomposition with partial pivoting in
// place. It returns true when the matrix is too ill-conditioned to use.
func analyzeRanges(mtx *mat3, vecIdxs *[3]int, recips *vec3) bool {
	var val, tmp float64

	for x := 1; x <= 2; x++ {
		val = math.Max(math.Abs(mtx[x][1]), math.Abs(mtx[x][2]))
		if val < epsilon {
			return true
		}
		recips[x] = 1.0 / val
	}

	maxIndex := 0
	for i := 1; i <= 2; i++ {
		for x := 1; x < i; x++ {
			tmp = mtx[x][i]
			for y := 1; y < x; y++ {
				tmp -= mtx[x][y] * mtx[y][i]
			}
			mtx[x][i] = tmp
		}

		val = 0.0
		for x := i; x <= 2; x++ {
			tmp = mtx[x][i]
			for y := 1; y < i; y++ {
				tmp -= mtx[x][y] * mtx[y][i]
			}
			mtx[x][i] = tmp

			tmp = math.Abs(tmp) * recips[x]
			if tmp >= val {
				val = tmp
				maxIndex = x
			}
		}

		if maxIndex != i {
			for y := 1; y <= 2; y++ {
				mtx[maxIndex][y], mtx[i][y] = mtx[i][y], mtx[maxIndex][y]
			}
			recips[maxIndex] = recips[i]
		}

		vecIdxs[i] = maxIndex

		if i != 2 {
			tmp = 1.0 / mtx[i][i]
			for x := i + 1; x <= 2; x++ {
				mtx[x][i] *= tmp
			}
		}
	}

	lo, hi := 1.0e10, 0.0
	for i := 1; i <= 2; i++ {
		tmp = math.Abs(mtx[i][i])
		if tmp < lo {
			lo = tmp
		}
		if tmp > hi {
			hi = tmp
		}
	}

	return lo/hi < 1.0e-10
}

// epsilon matches the C++ std::numeric_limits<double>::epsilon().
const epsilon = 2.220446049250313e-16

// bidirectionalFilter solves the decomposed system by forward and back
// substitution, writing the predictor into out.
func bidirectionalFilter(mtx *mat3, vecIdxs *[3]int, out *vec3) {
	var tmp float64

	for i, x := 1, 0; i <= 2; i++ {
		index := vecIdxs[i]
		tmp = out[index]
		out[index] = out[i]
		if x != 0 {
			for y := x; y <= i-1; y++ {
				tmp -= out[y] * mtx[i][y]
			}
		} else if tmp != 0.0 {
			x = i
		}
		out[i] = tmp
	}

	for i := 2; i > 0; i-- {
		tmp = out[i]
		for y := i + 1; y <= 2; y++ {
			tmp -= out[y] * mtx[i][y]
		}
		out[i] = tmp / mtx[i][i]
	}

	out[0] = 1.0
}

// quadraticMerge converts the predictor to reflection form in place and
// reports whether it is unstable.
func quadraticMerge(v *vec3) bool {
	v2 := v[2]
	tmp := 1.0 - (v2 * v2)
	if tmp == 0.0 {
		return true
	}

	v0 := (v[0] - (v2 * v2)) / tmp
	v1 := (v[1] - (v[1] * v2)) / tmp
	v[0] = v0
	v[1] = v1

	return math.Abs(v1) > 1.0
}

// finishRecord clamps reflection coefficients into (-1, 1) and converts
// them back to predictor form.
func finishRecord(in *vec3, out *vec3) {
	for z := 1; z <= 2; z++ {
		if in[z] >= 1.0 {
			in[z] = 0.9999999999
		} else if in[z] <= -1.0 {
			in[z] = -0.9999999999
		}
	}
	out[0] = 1.0
	out[1] = (in[2] * in[1]) + in[1]
	out[2] = in[2]
}

// matrixFilter converts a predictor record into its autocorrelation form.
func matrixFilter(src *vec3, dst *vec3, mtx *mat3) {
	mtx[2][0] = 1.0
	for i := 1; i <= 2; i++ {
		mtx[2][i] = -src[i]
	}

	for i := 2; i > 0; i-- {
		val := 1.0 - (mtx[i][i] * mtx[i][i])
		for y := 1; y <= i; y++ {
			mtx[i-1][y] = ((mtx[i][i] * mtx[i][y]) + mtx[i][y]) / val
		}
	}

	dst[0] = 1.0
	for i := 1; i <= 2; i++ {
		dst[i] = 0.0
		for y := 1; y <= i; y++ {
			dst[i] += mtx[i][y] * dst[i-y]
		}
	}
}

// mergeFinishRecord runs a Levinson-Durbin step over an averaged
// autocorrelation vector and finishes the resulting predictor.
func mergeFinishRecord(src *vec3, dst *vec3) {
	var tmp vec3
	val := src[0]

	dst[0] = 1.0
	for i := 1; i <= 2; i++ {
		v2 := 0.0
		for y := 1; y < i; y++ {
			v2 += dst[y] * src[i-y]
		}

		if val > 0.0 {
			dst[i] = -(v2 + src[i]) / val
		} else {
			dst[i] = 0.0
		}

		tmp[i] = dst[i]

		for y := 1; y < i; y++ {
			dst[y] += dst[i] * dst[i-y]
		}

		val *= 1.0 - (dst[i] * dst[i])
	}

	finishRecord(&tmp, dst)
}

// contrastVectors is the prediction-error distance between candidate a
// and record b.
func contrastVectors(a *vec3, b *vec3) float64 {
	val := (b[2]*b[1] + -b[1]) / (1.0 - b[2]*b[2])
	val1 := (a[0] * a[0]) + (a[1] * a[1]) + (a[2] * a[2])
	val2 := (a[0] * a[1]) + (a[1] * a[2])
	val3 := a[0] * a[2]

	return val1 + (2.0 * val * val2) + (2.0 * (-b[1]*val + -b[2]) * val3)
}

// filterRecords refines the first exp candidates against the records with
// two assignment/update passes.
func filterRecords(vecBest *[CoefficientPairs]vec3, exp int, records []vec3) {
	var (
		bufferList [CoefficientPairs]vec3
		mtx        mat3
		counts     [CoefficientPairs]int
		buffer2    vec3
	)

	for range 2 {
		for y := 0; y < exp; y++ {
			counts[y] = 0
			bufferList[y] = vec3{}
		}

		for z := range records {
			index := 0
			value := 1.0e30
			for i := 0; i < exp; i++ {
				if d := contrastVectors(&vecBest[i], &records[z]); d < value {
					value = d
					index = i
				}
			}
			counts[index]++
			matrixFilter(&records[z], &buffer2, &mtx)
			for i := 0; i <= 2; i++ {
				bufferList[index][i] += buffer2[i]
			}
		}

		for i := 0; i < exp; i++ {
			if counts[i] > 0 {
				for y := 0; y <= 2; y++ {
					bufferList[i][y] /= float64(counts[i])
				}
			}
		}

		for i := 0; i < exp; i++ {
			mergeFinishRecord(&bufferList[i], &vecBest[i])
		}
	}
}
