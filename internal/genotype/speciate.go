package genotype

// SpeciateByFingerprint groups genotypes by exact structural fingerprint.
// The grouped values are clones.
func SpeciateByFingerprint(genotypes []*Genotype) map[string][]*Genotype {
	species := make(map[string][]*Genotype, len(genotypes))
	for _, g := range genotypes {
		_, species = AssignToFingerprintSpecies(g, species)
	}
	return species
}

// AssignToFingerprintSpecies appends one genotype into its exact-fingerprint
// species bucket and returns the selected species key.
func AssignToFingerprintSpecies(g *Genotype, species map[string][]*Genotype) (string, map[string][]*Genotype) {
	if species == nil {
		species = map[string][]*Genotype{}
	}
	key := fingerprintSpeciesKey(g)
	species[key] = append(species[key], g.Clone())
	return key, species
}

func fingerprintSpeciesKey(g *Genotype) string {
	return "fp:" + ComputeSignature(g).Fingerprint
}
