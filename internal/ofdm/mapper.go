package ofdm

// CarrierMap gives, for each logical data-carrier index (0..NumCarriers-1,
// the order used by the FIC/MSC bit-level demapping per ETSI EN 300 401
// clause 14.6), the FFT bin index (standard DC=0, negative frequencies
// wrapped to the upper half convention) that carries it. Grounded on
// dab_mapper_ref.cpp's get_DAB_mapper_ref, restated to emit FFT bin
// indices directly instead of the reference's intermediate gap-removed
// position, since that is what a consumer reading FFT output needs.
func CarrierMap(params Params) []int {
	n := params.NFFT
	k := n / 4

	piTable := make([]int, n)
	for i := 1; i < n; i++ {
		piTable[i] = (13*piTable[i-1] + k - 1) % n
	}

	dcIndex := n / 2
	numCarriers := params.NumCarriers
	startIndex := dcIndex - numCarriers/2
	endIndex := dcIndex + numCarriers/2

	bins := make([]int, 0, numCarriers)
	for i := 0; i < n; i++ {
		v := piTable[i]
		if v < startIndex || v > endIndex || v == dcIndex {
			continue
		}
		var p int
		if v < dcIndex {
			p = v - startIndex
		} else {
			p = v - startIndex - 1
		}
		signedFreq := signedFrequency(p, numCarriers)
		bins = append(bins, (signedFreq+n)%n)
	}
	return bins
}

// signedFrequency converts a gap-removed, DC-centred carrier position
// (0..numCarriers-1, lowest frequency first) back to a signed carrier
// index, skipping the DC bin that position numCarriers/2 would otherwise
// occupy.
func signedFrequency(p, numCarriers int) int {
	half := numCarriers / 2
	if p < half {
		return p - half
	}
	return p - half + 1
}
